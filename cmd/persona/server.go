package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/persona/internal/api"
	"github.com/kalambet/persona/internal/config"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runMCP(ctx)
	},
}

func runServer(ctx context.Context) error {
	fmt.Fprintf(os.Stderr, "persona version %s\n", version)

	a, err := newApp()
	if err != nil {
		return err
	}

	rate, err := config.ParseRate(a.cfg.RateLimit.Rate)
	if err != nil {
		return err
	}

	handler := api.NewHandler(api.Deps{
		Chat:    a.chat,
		Welcome: a.welcome,
		Version: version,
		Rate:    rate,
		Origins: a.cfg.CORS.AllowedOrigins(),
		Logger:  logger,

		TrustProxy: a.cfg.Server.TrustProxy,
	})

	ln, err := net.Listen("tcp", a.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Server.Addr(), err)
	}
	logger.Info("listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("rate_limit", rate.String()),
	)
	printSuccess("persona listening on %s", ln.Addr())

	return serve(ctx, ln, handler)
}

// serve runs handler on ln until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Requests outlive ctx so Shutdown can drain them.
		BaseContext: func(_ net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runMCP(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Chat:    a.chat,
		Profile: a.profile,
		Welcome: a.welcome,
		Version: version,
		Logger:  logger,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	logger.Info("MCP server started (stdio transport)")
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}
