// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package services provides suture.Service wrappers for Shopsense's
long-running work.

  - HTTPServerService: ListenAndServe with graceful Shutdown on cancel
  - PeriodicService: a Task run on a ticker, optionally once at startup,
    each run bounded by a timeout; failures are logged and retried on the
    next tick
  - SchedulerService: starts and stops the cron scheduler that drives
    component-registered jobs (profile flushes, cache sweeps, experiment
    reallocation)

Every wrapper returns ctx.Err() on a clean shutdown and implements String
for supervisor logs.

# Example

	rebuild := services.NewPeriodicService("model-rebuild", engine.Rebuild, services.PeriodicConfig{
	    Interval:     time.Hour,
	    RunOnStartup: true,
	}, logger)
	tree.AddDataService(rebuild)
*/
package services
