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
	"time"

	"github.com/spf13/cobra"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/adapters/httpapi"
)

const shutdownTimeout = 10 * time.Second

var addrFlag string

// NewRunCmd creates the run subcommand
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServer,
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := GetApp(ctx)
	if err != nil {
		return err
	}

	accounts, err := app.Store.CountAccounts(ctx)
	if err != nil {
		return err
	}
	if accounts == 0 {
		slog.Warn("no accounts configured, /twitter routes are disabled; add one with 'hydrus-api account add'")
	}

	cfg := app.Config
	addr := cfg.Server.Addr
	if addrFlag != "" {
		addr = addrFlag
	}

	router := httpapi.NewRouter(app.Fetcher, app.CacheSvc, httpapi.Options{
		MountTwitter:   accounts > 0,
		RequestTimeout: cfg.WriteTimeout(),
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr, "accounts", accounts)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
