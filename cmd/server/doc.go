// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Command server runs the Shopsense personalization service.

Startup order:

 1. Load configuration (defaults, YAML file, environment) and initialize logging.
 2. Open the key-value store.
 3. Build the event bus, the cron scheduler, the catalog, and every engine.
 4. Register experiments from configuration.
 5. Start the audit trail when audit.enabled is set.
 6. Subscribe the event flows:
    behavior.tracked invalidates scores and recommendations and feeds
    experiment outcomes; catalog.data_refreshed rebuilds the models;
    experiment.completed is written to the audit trail; score, variant,
    catalog, and experiment updates are pushed to websocket streams.
 7. Start the supervisor tree (scheduler, periodic jobs, websocket hub,
    HTTP server).

SIGINT or SIGTERM cancels the tree, then components close in reverse
order so pending profiles are flushed before the store closes.

# Configuration

	CONFIG_PATH=/etc/shopsense/config.yaml HTTP_PORT=8080 ./server

See package config for every setting and its environment variable.

# Operator Tokens

With AUTH_MODE=jwt the experiment, insight, model, and audit routes need
a bearer token. Issue one with the same configuration:

	JWT_SECRET=... ./server issue-token -subject ops@example.com -ttl 8h
*/
package main
