package query

import (
	"context"
	"net"
	"runtime"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/obsidianstack/capturestack/agent/internal/auth"
	"github.com/obsidianstack/capturestack/pkg/capture"
)

type request struct {
	pad [4]int
}

type handlerRegion struct {
	pad [4]int
}

// startServer serves svc over an in-memory listener and returns a connection
// to it.
func startServer(t *testing.T, svc *Service, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(opts...)
	svc.Register(gs)
	go gs.Serve(lis) //nolint:errcheck
	t.Cleanup(gs.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, "bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func callCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGetRelatedStack_Found(t *testing.T) {
	st := capture.New()
	sc := st.NewScope()
	region, req := &handlerRegion{}, &request{}

	sc.Capture(capture.KeyOf(region))
	sc.InsertEnter(capture.KeyOf(region))
	sc.Capture(capture.KeyOf(req))
	sc.InsertExit(capture.KeyOf(region))

	client := NewClient(startServer(t, New(st)), "", "")
	reply, err := client.GetRelatedStack(callCtx(t), capture.KeyOf(req).ID())
	if err != nil {
		t.Fatalf("GetRelatedStack: %v", err)
	}
	if !reply.Found {
		t.Fatal("found: got false, want true")
	}

	boundary := -1
	for i, f := range reply.Frames {
		if f == nil {
			boundary = i
			break
		}
	}
	if boundary != 1 {
		t.Fatalf("boundary index: got %d, want 1", boundary)
	}
	if reply.Frames[0].Method != "TestGetRelatedStack_Found" {
		t.Errorf("first frame: got %q", reply.Frames[0].Method)
	}
	if reply.Frames[2].Method != "TestGetRelatedStack_Found" {
		t.Errorf("ancestor frame: got %q", reply.Frames[2].Method)
	}
	runtime.KeepAlive(region)
	runtime.KeepAlive(req)
}

func TestGetRelatedStack_NotFound(t *testing.T) {
	client := NewClient(startServer(t, New(capture.New())), "", "")
	reply, err := client.GetRelatedStack(callCtx(t), 0xdead)
	if err != nil {
		t.Fatalf("GetRelatedStack: %v", err)
	}
	if reply.Found || len(reply.Frames) != 0 {
		t.Errorf("reply: got %+v, want not found", reply)
	}
}

func TestGetRelatedStack_ZeroID(t *testing.T) {
	client := NewClient(startServer(t, New(capture.New())), "", "")
	_, err := client.GetRelatedStack(callCtx(t), 0)
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code: got %v, want InvalidArgument", status.Code(err))
	}
}

func TestGetRelatedStack_APIKey(t *testing.T) {
	st := capture.New()
	checker := auth.New("apikey", "x-api-key", "secret")
	conn := startServer(t, New(st), grpc.UnaryInterceptor(checker.UnaryInterceptor()))

	_, err := NewClient(conn, "x-api-key", "wrong").GetRelatedStack(callCtx(t), 1)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("wrong key: got %v, want Unauthenticated", status.Code(err))
	}

	reply, err := NewClient(conn, "x-api-key", "secret").GetRelatedStack(callCtx(t), 1)
	if err != nil {
		t.Fatalf("correct key: %v", err)
	}
	if reply.Found {
		t.Error("found: got true on an empty store")
	}
}

func TestHealth_TracksEnabled(t *testing.T) {
	st := capture.New()
	svc := New(st)
	hc := healthpb.NewHealthClient(startServer(t, svc))

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		resp, err := hc.Check(callCtx(t), &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q): %v", service, err)
		}
		return resp.Status
	}

	if got := check(ServiceName); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("enabled: got %v, want SERVING", got)
	}

	svc.SetServing(false)
	if got := check(ServiceName); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("disabled: got %v, want NOT_SERVING", got)
	}
	if got := check(""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall: got %v, want SERVING", got)
	}
}

func TestHealth_StartsFromStoreFlag(t *testing.T) {
	svc := New(capture.New(capture.WithEnabled(false)))
	hc := healthpb.NewHealthClient(startServer(t, svc))

	resp, err := hc.Check(callCtx(t), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status: got %v, want NOT_SERVING", resp.Status)
	}
}

func TestJSONCodec_RoundTripsBoundaries(t *testing.T) {
	c := jsonCodec{}
	data, err := c.Marshal(&StackReply{Found: true, Frames: nil})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"found":true}` {
		t.Errorf("encoded: got %s", data)
	}

	var reply StackReply
	if err := c.Unmarshal([]byte(`{"found":true,"frames":[{"method":"a"},null,{"method":"b"}]}`), &reply); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(reply.Frames) != 3 || reply.Frames[1] != nil || reply.Frames[2].Method != "b" {
		t.Errorf("frames: got %+v", reply.Frames)
	}
	if c.Name() != "json" {
		t.Errorf("Name: got %q", c.Name())
	}
}
