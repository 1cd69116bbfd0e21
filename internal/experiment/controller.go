// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package experiment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/cache"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/recommend/reranking"
	"github.com/tomtom215/shopsense/internal/schedule"
	"github.com/tomtom215/shopsense/internal/store"
)

// ErrUnknownExperiment is returned for an unregistered experiment id.
var ErrUnknownExperiment = errors.New("experiment: unknown experiment")

// experiment is the live state of one registered Definition.
type experiment struct {
	def         Definition
	program     *vm.Program
	variants    []VariantStats
	index       map[string]int
	status      Status
	winner      string
	lift        float64
	completedAt time.Time
}

func newExperiment(def Definition, program *vm.Program) *experiment {
	weights := make([]float64, len(def.Variants))
	for i, v := range def.Variants {
		weights[i] = v.Weight
	}
	normalizeWeights(weights)

	e := &experiment{
		def:      def,
		program:  program,
		variants: make([]VariantStats, len(def.Variants)),
		index:    make(map[string]int, len(def.Variants)),
		status:   StatusRunning,
	}
	for i, v := range def.Variants {
		e.variants[i] = VariantStats{ID: v.ID, Weight: weights[i]}
		e.index[v.ID] = i
	}
	return e
}

func (e *experiment) snapshot() Snapshot {
	return Snapshot{
		ID:          e.def.ID,
		Name:        e.def.Name,
		Metric:      e.def.Metric,
		Control:     e.def.Control,
		Status:      e.status,
		Winner:      e.winner,
		Lift:        e.lift,
		CompletedAt: e.completedAt,
		Variants:    append([]VariantStats(nil), e.variants...),
	}
}

// Controller assigns sessions to experiment variants, counts their
// outcomes, and shifts traffic toward the better performers.
type Controller struct {
	cfg       Config
	kv        store.KV
	publisher events.Publisher
	sched     schedule.Scheduler
	logger    zerolog.Logger

	// assignments caches session -> experiment -> variant. Values are
	// replaced, never mutated.
	assignments *cache.Memo[map[string]string]

	mu          sync.Mutex
	experiments map[string]*experiment
	order       []string
	rng         *rand.Rand
	cancel      schedule.Cancel
}

// NewController creates a controller. publisher may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewController(cfg Config, kv store.KV, publisher events.Publisher, sched schedule.Scheduler, logger zerolog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if publisher == nil {
		publisher = events.Discard{}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	memoCfg := cache.DefaultConfig()
	memoCfg.MaxEntries = cfg.AssignmentCache
	memoCfg.MaxAge = 24 * time.Hour

	c := &Controller{
		cfg:         cfg,
		kv:          kv,
		publisher:   publisher,
		sched:       sched,
		logger:      logger.With().Str("component", "experiment").Logger(),
		assignments: cache.NewMemo[map[string]string]("ab_assignments", memoCfg, sched),
		experiments: make(map[string]*experiment),
		rng:         rand.New(rand.NewSource(seed)), //nolint:gosec // variant draws need no crypto randomness
		cancel:      schedule.Noop,
	}
	for _, def := range cfg.Experiments {
		if err := c.Register(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds an experiment. Its variant weights are normalized.
func (c *Controller) Register(def Definition) error {
	def = DefaultDefinition(def)
	if err := def.Validate(); err != nil {
		return err
	}
	program, err := compileEligibility(def.Eligibility)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.experiments[def.ID]; ok {
		return fmt.Errorf("experiment %q already registered", def.ID)
	}
	exp := newExperiment(def, program)
	c.experiments[def.ID] = exp
	c.order = append(c.order, def.ID)
	for _, v := range exp.variants {
		metrics.SetExperimentWeight(def.ID, v.ID, v.Weight)
	}
	c.logger.Info().Str("experiment_id", def.ID).Int("variants", len(def.Variants)).Str("metric", string(def.Metric)).Msg("experiment registered")
	return nil
}

// Open restores persisted results and schedules reallocation.
func (c *Controller) Open(ctx context.Context) {
	c.restore(ctx)
	c.assignments.Open(c.sched)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	c.cancel = c.sched.Every(c.cfg.ReallocateInterval, func() {
		if err := c.Reallocate(context.Background()); err != nil {
			c.logger.Warn().Err(err).Msg("reallocation failed")
		}
	})
}

// Close stops reallocation and persists results.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	c.cancel()
	c.cancel = schedule.Noop
	c.mu.Unlock()
	c.assignments.Close()
	return c.persistResults(ctx)
}

// Assign returns the session's variant of an experiment, assigning one on
// the first eligible call. Assignments are sticky and persisted. ok is false
// when the experiment is unknown or the session is not eligible.
func (c *Controller) Assign(ctx context.Context, sessionID, experimentID, segment, page string) (string, bool) {
	if sessionID == "" {
		return "", false
	}
	c.mu.Lock()
	id, fresh, ok := c.assignLocked(ctx, sessionID, experimentID, segment, page)
	c.mu.Unlock()

	if ok && fresh {
		c.publisher.Publish(ctx, events.VariantResolved{
			SessionID:    sessionID,
			ExperimentID: experimentID,
			VariantID:    id,
			At:           c.sched.Now(),
		})
	}
	return id, ok
}

func (c *Controller) assignLocked(ctx context.Context, sessionID, experimentID, segment, page string) (string, bool, bool) {
	exp, ok := c.experiments[experimentID]
	if !ok || !c.eligible(exp, sessionID, segment, page) {
		return "", false, false
	}

	assigned := c.loadAssignments(ctx, sessionID)
	if id, ok := assigned[experimentID]; ok {
		if _, exists := exp.index[id]; !exists {
			c.logger.Warn().
				Str("session_id", sessionID).
				Str("experiment_id", experimentID).
				Str("variant_id", id).
				Msg("assignment points at a missing variant")
			return "", false, false
		}
		return id, false, true
	}

	id := exp.winner
	if exp.status != StatusCompleted {
		id = c.draw(exp)
	}

	next := make(map[string]string, len(assigned)+1)
	for k, v := range assigned {
		next[k] = v
	}
	next[experimentID] = id
	c.assignments.Set(sessionID, next)

	err := store.SetJSON(ctx, c.kv, store.AssignmentsKey(sessionID), next)
	metrics.RecordPersistence("assignment_save", err)
	if err != nil {
		c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("assignment not persisted")
	}
	return id, true, true
}

// draw picks a variant by walking cumulative weights. Must hold mu.
func (c *Controller) draw(exp *experiment) string {
	u := c.rng.Float64()
	var cum float64
	for _, v := range exp.variants {
		cum += v.Weight
		if u < cum {
			return v.ID
		}
	}
	return exp.variants[len(exp.variants)-1].ID
}

func (c *Controller) eligible(exp *experiment, sessionID, segment, page string) bool {
	if len(exp.def.Segments) > 0 && !contains(exp.def.Segments, segment) {
		return false
	}
	if len(exp.def.Pages) > 0 && !contains(exp.def.Pages, page) {
		return false
	}
	if exp.program == nil {
		return true
	}
	out, err := expr.Run(exp.program, eligibilityEnv(segment, page, sessionID))
	if err != nil {
		c.logger.Debug().Err(err).Str("experiment_id", exp.def.ID).Msg("eligibility evaluation failed")
		return false
	}
	pass, _ := out.(bool)
	return pass
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// loadAssignments returns the session's assignments, reading the store on a
// cache miss. The returned map must not be modified.
func (c *Controller) loadAssignments(ctx context.Context, sessionID string) map[string]string {
	m, err := c.assignments.Memoize(ctx, sessionID, 0, func(ctx context.Context) (map[string]string, error) {
		var rec map[string]string
		err := store.GetJSON(ctx, c.kv, store.AssignmentsKey(sessionID), &rec)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return map[string]string{}, nil
		case err != nil:
			c.logger.Warn().Err(err).Str("session_id", sessionID).Msg("discarding unreadable assignments")
			return map[string]string{}, nil
		}
		if rec == nil {
			rec = map[string]string{}
		}
		return rec, nil
	})
	if err != nil {
		return map[string]string{}
	}
	return m
}

// Resolve returns the reorder settings of the first registered experiment
// that assigns the session a variant. It implements reranking.Variants.
func (c *Controller) Resolve(ctx context.Context, sessionID string, segment reranking.Segment, page string) (reranking.Variant, bool) {
	c.mu.Lock()
	ids := append([]string(nil), c.order...)
	c.mu.Unlock()

	for _, expID := range ids {
		variantID, ok := c.Assign(ctx, sessionID, expID, string(segment), page)
		if !ok {
			continue
		}
		c.mu.Lock()
		exp := c.experiments[expID]
		settings := exp.def.Variants[exp.index[variantID]].Settings
		c.mu.Unlock()
		return reranking.Variant{ExperimentID: expID, VariantID: variantID, Settings: settings}, true
	}
	return reranking.Variant{}, false
}

// Assignments returns a copy of the session's experiment -> variant map.
func (c *Controller) Assignments(ctx context.Context, sessionID string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.loadAssignments(ctx, sessionID)
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Record updates the counters of every variant the session is assigned to:
// views count as impressions, purchases as conversions with their order
// value, engagement as time on site. Other kinds are ignored.
func (c *Controller) Record(ctx context.Context, ev behavior.Event) {
	switch ev.Kind {
	case behavior.KindView, behavior.KindPurchase, behavior.KindEngagement:
	default:
		return
	}
	if ev.SessionID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for expID, variantID := range c.loadAssignments(ctx, ev.SessionID) {
		exp, ok := c.experiments[expID]
		if !ok {
			continue
		}
		i, ok := exp.index[variantID]
		if !ok {
			continue
		}
		s := &exp.variants[i]
		switch ev.Kind {
		case behavior.KindView:
			s.Impressions++
			metrics.RecordExperimentImpression(expID, variantID)
		case behavior.KindPurchase:
			s.Conversions++
			if ev.Value > 0 {
				s.ValuedOrders++
				s.AverageOrderValue += (ev.Value - s.AverageOrderValue) / float64(s.ValuedOrders)
			}
			metrics.RecordExperimentConversion(expID, variantID)
		case behavior.KindEngagement:
			if ev.Duration > 0 {
				s.Engagements++
				s.TimeOnSite += (ev.Duration - s.TimeOnSite) / time.Duration(s.Engagements)
			}
		}
		if s.Impressions > 0 {
			s.ConversionRate = float64(s.Conversions) / float64(s.Impressions)
		}
	}
}

// RecordImpression counts an explicit impression for the session's
// variant of an experiment.
func (c *Controller) RecordImpression(ctx context.Context, sessionID, experimentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.experiments[experimentID]
	if !ok {
		return false
	}
	variantID, ok := c.loadAssignments(ctx, sessionID)[experimentID]
	if !ok {
		return false
	}
	i, ok := exp.index[variantID]
	if !ok {
		return false
	}
	s := &exp.variants[i]
	s.Impressions++
	s.ConversionRate = float64(s.Conversions) / float64(s.Impressions)
	metrics.RecordExperimentImpression(experimentID, variantID)
	return true
}

// Clear forgets a session's assignments in memory and in the store.
func (c *Controller) Clear(ctx context.Context, sessionID string) error {
	c.assignments.Delete(sessionID)
	if err := c.kv.Delete(ctx, store.AssignmentsKey(sessionID)); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	return nil
}

// Snapshot returns every experiment's state in registration order.
func (c *Controller) Snapshot() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.experiments[id].snapshot())
	}
	return out
}

// Experiment returns one experiment's state.
func (c *Controller) Experiment(id string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.experiments[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownExperiment, id)
	}
	return exp.snapshot(), nil
}
