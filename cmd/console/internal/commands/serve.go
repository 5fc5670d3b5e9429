package commands

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-platform-console/api/apifake"
	"github.com/jrsteele09/go-platform-console/server"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

type ServeCmd struct {
	Addr string `help:"Listen address, defaults to the configured port"`
}

func (s *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	handler, err := server.New(c.cfg, c.sessions, c.selection,
		server.WithLogger(c.logger),
		server.WithNotifications(c.inbox),
	)
	if err != nil {
		return err
	}

	addr := s.Addr
	if addr == "" {
		addr = c.cfg.GetPort()
	}
	displayAppname(globals.out(), c.cfg.GetAppName())

	// Guarded pages answer with the loading placeholder until this lands
	go func() {
		if _, err := c.sessions.Bootstrap(ctx); err != nil {
			c.logger.Error().Err(err).Msg("session bootstrap failed")
		}
	}()

	return serveUntilStopped(ctx, &http.Server{Addr: addr, Handler: handler}, c.logger)
}

type DemoBackendCmd struct {
	Addr string `default:":8080" help:"Listen address"`
}

func (d *DemoBackendCmd) Run(ctx context.Context, globals *Globals) error {
	l := setupLogger(globals)
	backend, err := apifake.NewDemo()
	if err != nil {
		return err
	}

	out := globals.out()
	fmtLine(out, "Demo API on %s", d.Addr)
	fmtLine(out, "  admin:  %s / %s", apifake.DemoAdminEmail, apifake.DemoPassword)
	fmtLine(out, "  client: %s / %s", apifake.DemoClientEmail, apifake.DemoPassword)
	fmtLine(out, "  new:    %s / %s", apifake.DemoNewEmail, apifake.DemoPassword)

	return serveUntilStopped(ctx, &http.Server{Addr: d.Addr, Handler: backend.Handler()}, l)
}

// serveUntilStopped runs srv until ctx ends or the process is interrupted,
// then shuts it down gracefully
func serveUntilStopped(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("net.Listen %w", err)
	}

	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(srv, ln, logger)
	}()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal(ctx):
	}
	return shutdown(srv)
}

func listenAndServe(srv *http.Server, ln net.Listener, logger zerolog.Logger) error {
	logger.Info().Str("addr", ln.Addr().String()).Msg("server listening")
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.Serve %w", err)
	}
	return nil
}

func waitForStopSignal(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(stop)
		select {
		case <-stop:
		case <-ctx.Done():
		}
		close(stopped)
	}()
	return stopped
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(out io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(out, myFigure.String())
}
