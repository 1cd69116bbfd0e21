// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/shopsense/internal/auth"
	"github.com/tomtom215/shopsense/internal/config"
	"github.com/tomtom215/shopsense/internal/logging"
	"github.com/tomtom215/shopsense/internal/supervisor"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.Logging.ToLogging())

	if len(os.Args) > 1 && os.Args[1] == "issue-token" {
		if err := issueToken(cfg.Auth, os.Args[2:]); err != nil {
			logging.Fatal().Err(err).Msg("Failed to issue token")
		}
		return
	}

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("store", string(cfg.Store.Type)).
		Str("catalog_source", cfg.Catalog.Source).
		Int("experiments", len(cfg.Experiment.Experiments)).
		Msg("Starting Shopsense with supervisor tree")

	if cfg.Auth.Mode == auth.ModeNone {
		logging.Warn().Msg("Operator endpoints are UNAUTHENTICATED (AUTH_MODE=none)")
	}
	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	for _, origin := range cfg.Server.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); set explicit storefront origins in production")
			break
		}
	}

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Shopsense stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// issueToken prints a signed operator token to stdout.
func issueToken(cfg auth.Config, args []string) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	subject := fs.String("subject", "", "operator identity recorded in the audit trail")
	role := fs.String("role", auth.RoleOperator, "role claim")
	ttl := fs.Duration("ttl", cfg.TokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-subject is required")
	}
	cfg.TokenTTL = *ttl
	manager, err := auth.NewJWTManager(cfg)
	if err != nil {
		return err
	}
	token, err := manager.GenerateToken(*subject, *role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}

// run builds the application, serves it under the supervisor tree until
// SIGINT or SIGTERM, then closes every component.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(cfg, logging.Logger())
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
		defer closeCancel()
		a.close(closeCtx)
	}()
	a.handler.SetRebuildContext(ctx)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.Supervisor)
	if err != nil {
		return err
	}
	a.supervise(tree, a.httpServer())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
		cancel()
	}
	if errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	return serveErr
}
