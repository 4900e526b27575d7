/*
Package main
File: main.go
Description: Entry point of the navigation companion. "run" listens for the game,
drives the navigation engine and serves the status API; "check-route" validates a
planned route against the segment files without touching the game.
*/

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/everforgeworks/roadnav/internal/api"
	"github.com/everforgeworks/roadnav/internal/config"
	"github.com/everforgeworks/roadnav/internal/game"
	"github.com/everforgeworks/roadnav/internal/store"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "roadnav",
		Short: "Turn-by-turn route navigation for the game's live telemetry",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults apply when empty)")

	rootCmd.AddCommand(runCmd(&configPath))
	rootCmd.AddCommand(checkRouteCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd(configPath *string) *cobra.Command {
	var (
		port      int
		routePath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen for the game and navigate the configured route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			load := func() (config.Config, error) {
				cfg, err := loadConfig(*configPath)
				if err != nil {
					return cfg, err
				}
				if cmd.Flags().Changed("port") {
					cfg.ListenPort = port
				}
				if cmd.Flags().Changed("route") {
					cfg.RoutePath = routePath
				}
				return cfg, cfg.Validate()
			}
			return runServe(load)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "TCP port the game connects to")
	cmd.Flags().StringVarP(&routePath, "route", "r", "", "planned route file")
	return cmd
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func newMachine(cfg config.Config, dispatcher *game.Dispatcher) *game.Machine {
	var initiator game.Initiator = game.NoopInitiator{}
	if cfg.RelayURL != "" {
		initiator = &game.RelayInitiator{URL: cfg.RelayURL, Token: cfg.AccessToken, Retry: cfg.InitiatorRetry}
	}
	return game.NewMachine(cfg, store.NewSegmentStore(cfg.SegmentsDir), store.NewRouteStore(), initiator, dispatcher)
}

func runServe(load func() (config.Config, error)) error {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := load()
	if err != nil {
		return err
	}

	// 1. The state stream and its consumers
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	dispatcher := game.NewDispatcher()
	go dispatcher.Run(runCtx)

	var status *api.Status
	hub := api.NewHub(func() []byte { return status.Greeting() })
	status = api.NewStatus(hub)
	go hub.Run(runCtx)

	dispatcher.Register(status.Receiver())
	dispatcher.Register(game.Receiver{
		OnStateChanged: func(s game.GameState) {
			log.Printf("STATE: %s", s.Name())
		},
		OnRouteSelected: func(r game.RouteInfo) {
			log.Printf("STATE: route %q selected (%d steps)", r.Name, r.Steps)
		},
	})

	// 2. Status API
	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv = &http.Server{Addr: cfg.StatusAddr, Handler: api.NewRouter(status, hub)}
		go func() {
			log.Printf("API: status server live on %s", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("API: server stopped: %v", err)
			}
		}()
	}

	// 3. The engine. A refused login is reported through the state stream and the
	// process stays up so a SIGHUP with a fixed config can retry.
	machine := newMachine(cfg, dispatcher)
	if err := machine.Start(runCtx); err != nil {
		log.Printf("GAME: not started: %v", err)
	}

	// 4. SIGHUP reloads the config and restarts the engine; SIGINT/SIGTERM stop.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-hup:
			log.Println("SIGNAL: reloading config")
			next, err := load()
			if err != nil {
				log.Printf("SIGNAL: keeping the running config: %v", err)
				continue
			}
			machine.Stop()
			machine = newMachine(next, dispatcher)
			if err := machine.Start(runCtx); err != nil {
				log.Printf("GAME: not started: %v", err)
			}

		case sig := <-quit:
			log.Printf("SIGNAL: %s, shutting down", sig)
			machine.Stop()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := dispatcher.Drain(ctx); err != nil {
				log.Printf("STATE: not all states delivered: %v", err)
			}
			if srv != nil {
				srv.Shutdown(ctx)
			}
			return nil
		}
	}
}
