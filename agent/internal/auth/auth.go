package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Open paths and methods are served without a key so probes keep working.
var (
	openPaths   = []string{"/api/v1/health"}
	openMethods = []string{"/grpc.health.v1.Health/"}
)

// Checker validates API keys for both the HTTP and gRPC surfaces.
//
// If mode != "apikey" or key == "", every request is allowed. Otherwise the
// value of header must equal key.
type Checker struct {
	header string
	key    []byte
	active bool
}

// New returns a Checker. header is lower-cased: gRPC normalises metadata keys
// and HTTP header lookup is case-insensitive.
func New(mode, header, key string) *Checker {
	return &Checker{
		header: strings.ToLower(header),
		key:    []byte(key),
		active: mode == "apikey" && key != "",
	}
}

// Active reports whether requests are being checked.
func (c *Checker) Active() bool { return c.active }

func (c *Checker) valid(got string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), c.key) == 1
}

// UnaryInterceptor enforces the key on every unary call except gRPC health
// checks. A missing, empty, or incorrect key returns codes.Unauthenticated.
func (c *Checker) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if !c.active || hasPrefix(info.FullMethod, openMethods) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		vals := md.Get(c.header)
		if len(vals) == 0 || !c.valid(vals[0]) {
			return nil, status.Error(codes.Unauthenticated, "invalid api key")
		}

		return handler(ctx, req)
	}
}

// Middleware enforces the key on HTTP requests except the health endpoint.
// Rejections are 401 with a JSON error body.
func (c *Checker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.active || hasPrefix(r.URL.Path, openPaths) {
			next.ServeHTTP(w, r)
			return
		}
		if !c.valid(r.Header.Get(c.header)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"}) //nolint:errcheck
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
