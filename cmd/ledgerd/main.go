/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command ledgerd serves the ledger over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/ledger"
	"github.com/tomoncle/ledger/api"
	"github.com/tomoncle/ledger/config"
	"github.com/tomoncle/ledger/database"
	"github.com/tomoncle/ledger/engine"
	"github.com/tomoncle/ledger/events"
	"github.com/tomoncle/ledger/events/kafka"
	"github.com/tomoncle/ledger/model"
	"github.com/tomoncle/ledger/utils"
)

func main() {
	configPath := flag.String("config", utils.EnvDefaultString("LEDGER_CONFIG", "configs/config.yaml"), "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	utils.ConfigureConsoleLogFormat(cfg.Log.Format)
	utils.ConfigureLogLevel(cfg.Log.Level)
	if cfg.Log.FileDir != "" {
		utils.ConfigureFileLogFormat(cfg.Log.Format)
		if err := utils.ConfigureFileLog(cfg.Log.FileDir, cfg.Log.MaxAgeDays); err != nil {
			return err
		}
		defer func() { _ = utils.CloseFileLog() }()
	}
	log := utils.NewLogger("LEDGER")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model.Register()
	db, err := database.InitDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.CloseDB(); err != nil {
			log.WithError(err).Warn("Failed to close database")
		}
	}()

	publisher, closePublisher := newPublisher(cfg.Events, log)
	defer closePublisher()

	svc := ledger.NewServiceWithDB(db,
		engine.WithLogger(log),
		engine.WithPublisher(publisher, cfg.Events.Topic),
		engine.WithLockTimeout(cfg.Ledger.LockTimeout),
	)
	seeded, err := ledger.Seed(ctx, svc, cfg.Ledger.Seed)
	if err != nil {
		return err
	}
	if seeded {
		log.WithField("accounts", len(cfg.Ledger.Seed)).Info("Seeded ledger")
	}
	if err := logBalances(ctx, svc, log); err != nil {
		return err
	}

	handler := api.NewHandler(svc, api.WithHealth(database.GetHealthStatus))
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newPublisher(cfg config.EventsConfig, log logrus.FieldLogger) (events.Publisher, func()) {
	if len(cfg.Brokers) == 0 {
		return events.NewLogPublisher(log), func() {}
	}
	p := kafka.NewPublisher(cfg.Brokers)
	log.WithField("brokers", cfg.Brokers).Info("Publishing transfer events to Kafka")
	return p, func() {
		if err := p.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Kafka publisher")
		}
	}
}

func logBalances(ctx context.Context, svc ledger.Service, log logrus.FieldLogger) error {
	accounts, err := svc.ListAccounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		log.WithFields(logrus.Fields{"id": a.ID, "owner": a.Owner, "balance": a.Balance.String()}).Info("Account balance")
	}
	return nil
}
