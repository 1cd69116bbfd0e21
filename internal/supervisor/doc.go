// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package supervisor provides process supervision for Shopsense using suture v4.

The tree organizes long-running services into three layers so that a
failure in one does not take down the others:

	RootSupervisor ("shopsense")
	├── DataSupervisor ("data-layer")
	│   ├── SchedulerService (profile flushes, cache sweeps, experiment reallocation)
	│   └── PeriodicService "model-rebuild"
	├── EngineSupervisor ("engine-layer")
	│   ├── PeriodicService "score-recompute"
	│   └── PeriodicService "catalog-refresh"
	└── APISupervisor ("api-layer")
	    ├── websocket.Hub
	    └── HTTPServerService

Crashed services are restarted with suture's failure decay and backoff.
Canceling the context passed to Serve stops every layer, waiting up to
ShutdownTimeout for each service. Supervisor events are logged through
sutureslog into the zerolog-backed slog handler.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg.Supervisor)
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewSchedulerService(sched, cfg.Supervisor.ShutdownTimeout))
	tree.AddEngineService(services.NewPeriodicService("catalog-refresh", cat.Refresh, cfg.Services.CatalogRefresh, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

The service wrappers live in the services subpackage.
*/
package supervisor
