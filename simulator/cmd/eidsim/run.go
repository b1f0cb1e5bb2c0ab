// Copyright 2026 eidsim contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/eidsim/eidsim/pkg/log"
	"github.com/eidsim/eidsim/pkg/private/serrors"
	"github.com/eidsim/eidsim/private/card"
	"github.com/eidsim/eidsim/private/config"
	"github.com/eidsim/eidsim/private/storage/trust/sqlite"
	"github.com/eidsim/eidsim/private/ta"
	"github.com/eidsim/eidsim/private/trust"
	"github.com/eidsim/eidsim/simulator/vpcd"
)

func newRun() *cobra.Command {
	var flags struct {
		config string
	}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulator and serve virtual reader connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(flags.config)
		},
	}
	cmd.Flags().StringVar(&flags.config, "config", "eidsim.toml", "Config file")
	return cmd
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := log.Setup(log.Config{Level: cfg.Log.Level}); err != nil {
		return err
	}
	defer log.Flush()

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openTrustStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	chipDate, err := cfg.ChipDate()
	if err != nil {
		return err
	}
	seed, err := cfg.PaceSeed()
	if err != nil {
		return err
	}
	simCard := card.New(card.Config{
		Trust:   store,
		Date:    card.NewDate(chipDate),
		Seed:    seed,
		Metrics: ta.NewMetrics(),
	})

	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, cfg.Metrics.Addr)
	}

	atr, err := cfg.ATR()
	if err != nil {
		return err
	}
	server, err := vpcd.New(vpcd.Config{
		Addr: cfg.General.ListenAddr,
		ATR:  atr,
		Card: simCard,
	})
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// openTrustStore opens the configured trust store and seeds the configured
// anchors for terminal types that have no trust point yet. Anchors already in
// the database win over the configuration.
func openTrustStore(ctx context.Context,
	cfg *config.Config) (trust.Store, func() error, error) {

	points, err := cfg.TrustPoints()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Trust.DBPath == "" {
		store := trust.NewMemoryStore()
		for tt, p := range points {
			if err := store.Seed(tt, p); err != nil {
				return nil, nil, err
			}
		}
		return store, func() error { return nil }, nil
	}
	db, err := sqlite.New(cfg.Trust.DBPath)
	if err != nil {
		return nil, nil, err
	}
	for tt, p := range points {
		_, err := db.Point(ctx, tt)
		switch {
		case errors.Is(err, trust.ErrNotFound):
			if err := db.Seed(ctx, tt, p); err != nil {
				db.Close()
				return nil, nil, err
			}
			log.Info("seeded trust point", "terminal_type", tt,
				"chr", p.Current.CHR)
		case err != nil:
			db.Close()
			return nil, nil, serrors.Wrap("checking trust point", err,
				"terminal_type", tt)
		}
	}
	return db, db.Close, nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	log.Info("metrics server listening", "addr", addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server failed", "err", err)
	}
}
