// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package algorithms

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/schedule"
)

// Model is a model trained from order history.
type Model interface {
	Name() string
	Train(ctx context.Context, orders []catalog.Order) error
	IsTrained() bool
	Version() int
	LastTrainedAt() time.Time
	Size() int
}

// BaseAlgorithm provides the training bookkeeping shared by all models.
type BaseAlgorithm struct {
	name          string
	clock         schedule.Clock
	trained       bool
	version       int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

// NewBaseAlgorithm creates a new base algorithm with the given name.
func NewBaseAlgorithm(name string, clock schedule.Clock) BaseAlgorithm {
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	return BaseAlgorithm{
		name:  name,
		clock: clock,
	}
}

// Name returns the algorithm identifier.
func (b *BaseAlgorithm) Name() string {
	return b.name
}

// IsTrained returns whether the model has been trained.
func (b *BaseAlgorithm) IsTrained() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trained
}

// Version returns the model version. It increases with every Train.
func (b *BaseAlgorithm) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// LastTrainedAt returns when the model was last trained.
func (b *BaseAlgorithm) LastTrainedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTrainedAt
}

// markTrained updates the trained state.
// Must be called while holding the training lock (acquireTrainLock).
func (b *BaseAlgorithm) markTrained() {
	b.trained = true
	b.version++
	b.lastTrainedAt = b.clock.Now()
}

// acquireTrainLock acquires the exclusive training lock.
func (b *BaseAlgorithm) acquireTrainLock() {
	b.mu.Lock()
}

// releaseTrainLock releases the exclusive training lock.
func (b *BaseAlgorithm) releaseTrainLock() {
	b.mu.Unlock()
}

// acquirePredictLock acquires the shared prediction lock.
func (b *BaseAlgorithm) acquirePredictLock() {
	b.mu.RLock()
}

// releasePredictLock releases the shared prediction lock.
func (b *BaseAlgorithm) releasePredictLock() {
	b.mu.RUnlock()
}

// baskets reduces orders to one deduplicated product list per order,
// dropping orders without products.
func baskets(orders []catalog.Order) [][]string {
	out := make([][]string, 0, len(orders))
	for _, o := range orders {
		seen := make(map[string]struct{}, len(o.Items))
		items := make([]string, 0, len(o.Items))
		for _, li := range o.Items {
			if li.ProductID == "" || li.Quantity <= 0 {
				continue
			}
			if _, ok := seen[li.ProductID]; ok {
				continue
			}
			seen[li.ProductID] = struct{}{}
			items = append(items, li.ProductID)
		}
		if len(items) > 0 {
			out = append(out, items)
		}
	}
	return out
}

// ContextCancelled checks if the context has been canceled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
