// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package config assembles the Shopsense configuration from component
defaults, an optional YAML file, and environment variables.

# Configuration Sources

Sources are layered with koanf, later ones overriding earlier ones:

 1. Defaults: every component's DefaultConfig, loaded through the structs provider
 2. File: CONFIG_PATH, or the first of config.yaml, config.yml, /etc/shopsense/config.yaml
 3. Environment: an explicit variable-to-key mapping; unmapped variables are ignored

Comma-separated environment values for list keys (CORS_ORIGINS,
REORDER_STRATEGIES) are split into slices.

# Sections

	logging        level, format, caller
	server         bind address, timeouts, CORS, rate limiting
	store          memory or badger KV
	events         bus buffer
	behavior       interaction weights, prediction thresholds, decay, persistence cadence
	scoring        sub-score rules and cache bounds
	collaborative  item-item similarity model
	basket         association-rule miner
	recommend      aggregator weights, boosts, candidate bounds, list cache
	reorder        default reorder settings, strategy weights, segment rules
	experiment     A/B definitions and bandit reallocation
	enrichment     external model endpoints and circuit breakers
	catalog        file, http, or static data source
	supervisor     suture failure thresholds
	services       periodic job intervals

# Example

	server:
	  port: 8080
	store:
	  type: badger
	  path: /data/shopsense
	reorder:
	  defaults:
	    subtlety: subtle
	    strategies: [personalization, urgency]
	catalog:
	  source: http
	  http:
	    base_url: https://shop.example.com/api

# Validation

LoadWithKoanf runs Config.Validate, which checks the ambient sections here
and delegates the rest to each component's Validate method or struct tags.
Loading fails on the first invalid value.
*/
package config
