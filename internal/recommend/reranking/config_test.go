// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package reranking

import "testing"

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown subtlety", func(c *Config) { c.Defaults.Subtlety = "loud" }, true},
		{"strength above one", func(c *Config) { c.Defaults.PersonalizationStrength = 1.5 }, true},
		{"unknown default strategy", func(c *Config) { c.Defaults.Strategies = []string{"diversity"} }, true},
		{"unknown weight", func(c *Config) { c.Weights["diversity"] = 0.5 }, true},
		{"weight above one", func(c *Config) { c.Weights[StrategyUrgency] = 2 }, true},
		{"critical above low", func(c *Config) { c.CriticalStock = 20 }, true},
		{"zero critical", func(c *Config) { c.CriticalStock = 0 }, true},
		{"zero cross sell", func(c *Config) { c.CrossSellPerItem = 0 }, true},
		{"subset of strategies", func(c *Config) { c.Defaults.Strategies = []string{StrategyUrgency, StrategyMargin} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_Enabled(t *testing.T) {
	t.Parallel()

	all := Settings{}
	if !all.Enabled(StrategyMargin) {
		t.Error("empty Strategies should enable every strategy")
	}
	some := Settings{Strategies: []string{StrategyUrgency}}
	if !some.Enabled(StrategyUrgency) || some.Enabled(StrategyMargin) {
		t.Errorf("Enabled() with %v is wrong", some.Strategies)
	}
}

func TestSubtlety_Multiplier(t *testing.T) {
	t.Parallel()

	tests := map[Subtlety]float64{SubtletySubtle: 0.4, SubtletyBalanced: 0.7, SubtletyBold: 1.0, "": 0.7}
	for s, want := range tests {
		if got := s.Multiplier(); got != want {
			t.Errorf("%q.Multiplier() = %v, want %v", s, got, want)
		}
	}
}
