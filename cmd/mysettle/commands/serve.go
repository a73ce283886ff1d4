package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mysettle/mysettle/internal/api"
	"github.com/mysettle/mysettle/internal/maps"
	"github.com/mysettle/mysettle/internal/vision"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the mySettle HTTP API used by the driver app and the police portal.

The server stops gracefully on SIGINT or SIGTERM.

Examples:
  # Listen on the configured host and port
  mysettle serve

  # Override the listen address
  mysettle serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default server.host:server.port)")
	return cmd
}

func (a *app) serve(ctx context.Context, cmd *cobra.Command, addr string) error {
	p := output(cmd)
	if addr == "" {
		addr = a.cfg.Server.Addr()
	}

	client, err := a.connect(ctx, p)
	if err != nil {
		return err
	}
	defer client.Close()

	verifier, err := a.verifier(ctx)
	if err != nil {
		return err
	}

	server := api.NewServer(
		a.service(client, ""),
		verifier,
		maps.NewSketcher(a.cfg.Google.MapsAPIKey, a.cfg.Google.MapsMock()),
		api.Options{
			AllowedOrigins:  a.cfg.Server.AllowedOrigins,
			SSEKeepAlive:    a.cfg.Server.SSEKeepAlive,
			ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		},
		a.logger,
	)

	a.logger.Info("starting server",
		zap.String("addr", addr),
		zap.String("namespace", a.cfg.Redis.Namespace),
		zap.Bool("maps_mock", a.cfg.Google.MapsMock()),
		zap.Bool("gemini_mock", a.cfg.Google.GeminiMock()))
	p.Success("mySettle API listening on %s\n", addr)

	if err := server.Run(ctx, addr); err != nil {
		return err
	}

	p.Info("Server stopped\n")
	return nil
}

// verifier selects the offline mock unless a Gemini key is configured.
func (a *app) verifier(ctx context.Context) (vision.Verifier, error) {
	if a.cfg.Google.GeminiMock() {
		return vision.Mock{}, nil
	}

	g, err := vision.NewGemini(ctx, vision.GeminiConfig{
		APIKey: a.cfg.Google.GeminiAPIKey,
		Model:  a.cfg.Google.GeminiModel,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini verifier: %w", err)
	}
	return g, nil
}
