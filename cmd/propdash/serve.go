package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/internal/rest"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard REST API",
	Long: `Serve loads the collection and exposes it over HTTP until interrupted.
Changes are published to the configured AMQP exchange.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr from config)")
}

// restDeps converts the app components into router dependencies, leaving
// out what the backend does not provide.
func restDeps(a *app) rest.Deps {
	deps := rest.Deps{Store: a.store}
	if a.uploader != nil {
		deps.Uploader = a.uploader
	}
	if a.sqlite != nil {
		deps.Objects = a.sqlite
	}
	return deps
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, appOptions{load: true, events: true})
	if err != nil {
		return err
	}
	defer a.Close()

	serverCfg := cfg.Server
	if serveAddr != "" {
		serverCfg.Addr = serveAddr
	}
	srv := rest.NewServer(serverCfg, restDeps(a), a.log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutdown requested", logging.Fields{"timeout": shutdownTimeout.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
