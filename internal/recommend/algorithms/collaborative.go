// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package algorithms

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/schedule"
)

// CollaborativeConfig contains configuration for the collaborative filter.
type CollaborativeConfig struct {
	// MinSimilarity is the cutoff below which pairs are not stored.
	MinSimilarity float64 `koanf:"min_similarity" validate:"gte=0,lte=1"`

	// MaxNeighbors caps the neighbor list kept per product.
	MaxNeighbors int `koanf:"max_neighbors" validate:"gte=1"`

	// NumWorkers is the number of parallel similarity workers.
	NumWorkers int `koanf:"num_workers" validate:"gte=1"`
}

// DefaultCollaborativeConfig returns the default configuration.
func DefaultCollaborativeConfig() CollaborativeConfig {
	return CollaborativeConfig{
		MinSimilarity: 0.1,
		MaxNeighbors:  50,
		NumWorkers:    4,
	}
}

// Neighbor is a similar product.
type Neighbor struct {
	ProductID  string  `json:"product_id"`
	Similarity float64 `json:"similarity"`
}

// Collaborative implements item-based collaborative filtering over
// purchase history.
//
// Each product is a binary vector over customers who bought it. For two
// products A and B:
//
//	sim(A, B) = |users(A) ∩ users(B)| / sqrt(|users(A)| × |users(B)|)
//
// Pairs below MinSimilarity are dropped and a product is never its own
// neighbor.
type Collaborative struct {
	BaseAlgorithm
	config CollaborativeConfig

	// similarity stores every retained pair in both directions.
	similarity map[string]map[string]float64

	// neighbors stores the sorted, capped neighbor list per product.
	neighbors map[string][]Neighbor

	// weight is the total purchased quantity per product.
	weight map[string]float64

	// popular is every product ordered by weight.
	popular []string

	pairs int
}

// NewCollaborative creates a new collaborative filter.
func NewCollaborative(cfg CollaborativeConfig, clock schedule.Clock) *Collaborative {
	def := DefaultCollaborativeConfig()
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = def.MinSimilarity
	}
	if cfg.MaxNeighbors <= 0 {
		cfg.MaxNeighbors = def.MaxNeighbors
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = def.NumWorkers
	}
	return &Collaborative{
		BaseAlgorithm: NewBaseAlgorithm("collaborative", clock),
		config:        cfg,
		similarity:    make(map[string]map[string]float64),
		neighbors:     make(map[string][]Neighbor),
		weight:        make(map[string]float64),
	}
}

// collabModel is one trained state, built outside the lock.
type collabModel struct {
	similarity map[string]map[string]float64
	neighbors  map[string][]Neighbor
	weight     map[string]float64
	popular    []string
	pairs      int
}

// Train rebuilds the similarity matrix from orders. Guest orders use the
// order id as the customer.
func (c *Collaborative) Train(ctx context.Context, orders []catalog.Order) error {
	start := time.Now()
	model, err := c.build(ctx, orders)
	if err != nil {
		return err
	}

	c.acquireTrainLock()
	c.similarity = model.similarity
	c.neighbors = model.neighbors
	c.weight = model.weight
	c.popular = model.popular
	c.pairs = model.pairs
	c.markTrained()
	c.releaseTrainLock()

	metrics.RecordModelRebuild(c.Name(), time.Since(start), model.pairs)
	return nil
}

func (c *Collaborative) build(ctx context.Context, orders []catalog.Order) (*collabModel, error) {
	// customer -> product -> summed quantity
	matrix := make(map[string]map[string]float64)
	weight := make(map[string]float64)
	for _, o := range orders {
		user := o.Customer()
		for _, li := range o.Items {
			if li.ProductID == "" || li.Quantity <= 0 {
				continue
			}
			if matrix[user] == nil {
				matrix[user] = make(map[string]float64)
			}
			matrix[user][li.ProductID] += float64(li.Quantity)
			weight[li.ProductID] += float64(li.Quantity)
		}
	}

	// Binary view: product -> number of distinct customers, and the
	// co-purchase counts for every pair sharing at least one customer.
	userCount := make(map[string]int)
	common := make(map[string]map[string]int)
	for _, items := range matrix {
		if ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		ids := make([]string, 0, len(items))
		for id := range items {
			ids = append(ids, id)
			userCount[id]++
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := ids[i], ids[j]
				if a > b {
					a, b = b, a
				}
				if common[a] == nil {
					common[a] = make(map[string]int)
				}
				common[a][b]++
			}
		}
	}

	similarity := make(map[string]map[string]float64)
	pairs := 0
	for a, row := range common {
		for b, n := range row {
			sim := float64(n) / math.Sqrt(float64(userCount[a])*float64(userCount[b]))
			if sim < c.config.MinSimilarity {
				continue
			}
			if similarity[a] == nil {
				similarity[a] = make(map[string]float64)
			}
			if similarity[b] == nil {
				similarity[b] = make(map[string]float64)
			}
			similarity[a][b] = sim
			similarity[b][a] = sim
			pairs++
		}
	}

	neighbors, err := c.rankNeighbors(ctx, similarity)
	if err != nil {
		return nil, err
	}

	return &collabModel{
		similarity: similarity,
		neighbors:  neighbors,
		weight:     weight,
		popular:    rankByWeight(weight),
		pairs:      pairs,
	}, nil
}

// rankNeighbors sorts and caps each product's neighbor list in parallel.
func (c *Collaborative) rankNeighbors(ctx context.Context, similarity map[string]map[string]float64) (map[string][]Neighbor, error) {
	ids := make([]string, 0, len(similarity))
	for id := range similarity {
		ids = append(ids, id)
	}

	neighbors := make(map[string][]Neighbor, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.NumWorkers)
	chunk := (len(ids) + c.config.NumWorkers - 1) / c.config.NumWorkers
	for start := 0; start < len(ids); start += chunk {
		end := start + chunk
		if end > len(ids) {
			end = len(ids)
		}
		slice := ids[start:end]
		g.Go(func() error {
			for _, id := range slice {
				if ContextCancelled(gctx) {
					return gctx.Err()
				}
				list := make([]Neighbor, 0, len(similarity[id]))
				for other, sim := range similarity[id] {
					list = append(list, Neighbor{ProductID: other, Similarity: sim})
				}
				sortNeighbors(list)
				if len(list) > c.config.MaxNeighbors {
					list = list[:c.config.MaxNeighbors]
				}
				mu.Lock()
				neighbors[id] = list
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return neighbors, nil
}

func sortNeighbors(list []Neighbor) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Similarity != list[j].Similarity {
			return list[i].Similarity > list[j].Similarity
		}
		return list[i].ProductID < list[j].ProductID
	})
}

func rankByWeight(weight map[string]float64) []string {
	ids := make([]string, 0, len(weight))
	for id := range weight {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if weight[ids[i]] != weight[ids[j]] {
			return weight[ids[i]] > weight[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Neighbors returns up to k products most similar to productID, highest
// similarity first. k <= 0 returns the whole stored list.
func (c *Collaborative) Neighbors(productID string, k int) []Neighbor {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	list := c.neighbors[productID]
	if k > 0 && len(list) > k {
		list = list[:k]
	}
	return append([]Neighbor(nil), list...)
}

// Similarity returns the stored similarity of a and b. ok is false for
// the self pair and for pairs below the cutoff.
func (c *Collaborative) Similarity(a, b string) (float64, bool) {
	if a == b {
		return 0, false
	}
	c.acquirePredictLock()
	defer c.releasePredictLock()

	sim, ok := c.similarity[a][b]
	return sim, ok
}

// Popular returns up to k products ordered by purchased quantity.
func (c *Collaborative) Popular(k int) []string {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	list := c.popular
	if k > 0 && len(list) > k {
		list = list[:k]
	}
	return append([]string(nil), list...)
}

// Weight returns the total purchased quantity of productID.
func (c *Collaborative) Weight(productID string) float64 {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	return c.weight[productID]
}

// Size returns the number of stored pairs (each counted once).
func (c *Collaborative) Size() int {
	c.acquirePredictLock()
	defer c.releasePredictLock()
	return c.pairs
}
