// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/config"
)

// newCatalogSource builds the configured catalog source and, when the
// source also manages carts, the cart collaborator. A file source has no
// carts.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newCatalogSource(cfg config.CatalogConfig, logger zerolog.Logger) (catalog.Source, catalog.CartSource, error) {
	switch cfg.Source {
	case config.CatalogSourceFile:
		return catalog.FileSource{Path: cfg.Path}, nil, nil
	case config.CatalogSourceHTTP:
		src := catalog.NewHTTPSource(cfg.HTTP, nil, logger)
		return src, src, nil
	case config.CatalogSourceStatic, "":
		logger.Warn().Msg("static catalog source configured, the catalog starts empty")
		src := catalog.NewStaticSource(catalog.Data{})
		return src, src, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}
