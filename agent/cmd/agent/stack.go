package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/capturestack/agent/internal/query"
	"github.com/obsidianstack/capturestack/pkg/types"
)

var errNotFound = errors.New("stack not found")

func newStackCommand(configPath *string) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "stack <id>",
		Short: "Fetch the stitched stack for an object id over gRPC",
		Long: `Fetch the stitched stack recorded for an object identity id from a
running agent. The id is decimal or 0x-prefixed hex, as listed by
GET /api/v1/stacks. Segments are separated by "..." lines.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = fmt.Sprintf("localhost:%d", cfg.Server.GRPCPort)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			conn, err := query.Dial(ctx, addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			auth := cfg.Server.Auth
			reply, err := query.NewClient(conn, auth.EffectiveHeader(), auth.Key()).GetRelatedStack(ctx, id)
			if err != nil {
				return err
			}
			if !reply.Found {
				return fmt.Errorf("id %#x: %w", id, errNotFound)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(reply.Frames)
			}
			_, err = fmt.Fprint(out, types.Format(reply.Frames))
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "agent gRPC address (default localhost:<server.grpc_port>)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print frames as JSON")
	return cmd
}
