package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tracker/internal/auth"
	"tracker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "HTTP listen address (default :8080)")
	_ = v.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	if rt.cfg.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required to serve (set TODO_AUTH_SECRET)")
	}
	authSvc, err := auth.New(rt.store, rt.cfg.Auth.Secret, rt.cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}

	logger.Info("tracker starting", slog.String("version", version), slog.String("commit", commit), slog.String("db_driver", rt.cfg.DB.Driver))

	srv := server.New(rt.service(), authSvc, logger, server.Options{SecureCookie: rt.cfg.Auth.SecureCookie})
	httpServer := &http.Server{
		Addr:    rt.cfg.Addr,
		Handler: srv.Engine(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
			return err
		}
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}
