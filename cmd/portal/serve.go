package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-portal-client/auth"
	"github.com/jrsteele09/go-portal-client/server"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local portal gateway",
		Long: "Serves the session endpoints, gated screen navigation and a credentialed " +
			"proxy to the backend API on PORT.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.verbose = true
			return c.run(func(_ context.Context, _ *cobra.Command, a *app, _ []string) error {
				return serve(a)
			})(cmd, nil)
		},
	}
}

func serve(a *app) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cancel := a.controller.Subscribe(func(change auth.Change) {
		a.logger.Info().Str("status", change.Status.String()).Msg("session state changed")
	})
	defer cancel()

	handler, err := server.New(a.config, server.Services{
		Controller: a.controller,
		Flows:      a.flows,
		Gate:       a.gate,
		API:        a.api,
	}, server.WithGatherer(a.registry), server.WithLogger(a.logger))
	if err != nil {
		return err
	}

	displayAppname(a.config.GetAppName())
	srv := &http.Server{
		Addr:              a.config.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(a, srv)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	returnError = shutdown(srv)
	a.logger.Info().Msg("Server stopped")
	return returnError
}

func listenAndServe(a *app, srv *http.Server) error {
	a.logger.Info().Str("addr", srv.Addr).Str("backend", a.config.GetAPIBaseURL()).Msg("gateway listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
