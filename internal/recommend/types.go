// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package recommend

import (
	"time"

	"github.com/tomtom215/shopsense/internal/validation"
)

func init() {
	names := make([]string, len(Pages))
	for i, p := range Pages {
		names[i] = string(p)
	}
	validation.RegisterEnum("page_context", names...)
}

// Page is the storefront page a recommendation list is rendered on.
type Page string

// Page contexts.
const (
	PageHome       Page = "home"
	PageProduct    Page = "product"
	PageCollection Page = "collection"
	PageSearch     Page = "search"
	PageCart       Page = "cart"
	PageCheckout   Page = "checkout"
)

// Pages lists every valid Page.
var Pages = []Page{PageHome, PageProduct, PageCollection, PageSearch, PageCart, PageCheckout}

// Valid reports whether p is a known page.
func (p Page) Valid() bool {
	for _, v := range Pages {
		if p == v {
			return true
		}
	}
	return false
}

// hidesCart reports whether cart items are excluded on this page.
func (p Page) hidesCart() bool {
	return p == PageCart || p == PageCheckout
}

// Source names a contributor to a recommendation score.
const (
	SourceCollaborative = "collaborative"
	SourceBasket        = "basket"
	SourceBehavior      = "behavior"
)

// Request asks for recommendations on one page.
type Request struct {
	// SessionID is the shopper session.
	SessionID string `json:"session_id" validate:"required,max=128"`

	// Page is the rendering context.
	Page Page `json:"page" validate:"required,page_context"`

	// ProductID is the product being viewed on a product page.
	ProductID string `json:"product_id,omitempty" validate:"max=128"`

	// CollectionID restricts results on a collection page. Handles work too.
	CollectionID string `json:"collection_id,omitempty" validate:"max=128"`

	// Limit is the number of recommendations to return.
	// Defaults to Config.DefaultLimit if zero.
	Limit int `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

// Recommendation is one ranked product with its explanation.
type Recommendation struct {
	// ProductID is the recommended product.
	ProductID string `json:"product_id"`

	// Score is the combined score after contextual boosts.
	Score float64 `json:"score"`

	// BaseScore is the weighted source sum before contextual boosts.
	BaseScore float64 `json:"base_score"`

	// Components holds the normalized [0,1] score of each source.
	Components map[string]float64 `json:"components"`

	// Reasons are human-readable explanations, strongest source first.
	Reasons []string `json:"reasons"`

	// Boosts names the contextual multipliers that applied.
	Boosts []string `json:"boosts,omitempty"`
}

// Response is a ranked recommendation list.
type Response struct {
	// Items is the ordered list of recommendations.
	Items []Recommendation `json:"items"`

	// TotalCandidates is the number of candidates considered after exclusions.
	TotalCandidates int `json:"total_candidates"`

	// Metadata contains diagnostic information.
	Metadata ResponseMetadata `json:"metadata"`
}

// ProductIDs returns the recommended ids in order.
func (r *Response) ProductIDs() []string {
	ids := make([]string, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.ProductID
	}
	return ids
}

// ResponseMetadata contains diagnostic information.
type ResponseMetadata struct {
	// SessionID is the session the list was built for.
	SessionID string `json:"session_id"`

	// Page is the page context used.
	Page Page `json:"page"`

	// Seeds are the products neighbors and rules were looked up from.
	Seeds []string `json:"seeds"`

	// CacheHit indicates whether the list was served from cache.
	CacheHit bool `json:"cache_hit"`

	// ModelVersion is the version of the co-purchase models used.
	ModelVersion int `json:"model_version"`

	// TrainedAt is when the co-purchase models were last rebuilt.
	TrainedAt time.Time `json:"trained_at"`

	// ComputedAt is when the list was computed.
	ComputedAt time.Time `json:"computed_at"`
}

// TrainingStatus reports the state of the co-purchase model rebuilds.
type TrainingStatus struct {
	// IsTraining indicates whether a rebuild is in progress.
	IsTraining bool `json:"is_training"`

	// ModelVersion increments on every successful rebuild.
	ModelVersion int `json:"model_version"`

	// LastTrainedAt is when the last successful rebuild finished.
	LastTrainedAt time.Time `json:"last_trained_at"`

	// LastDurationMS is how long the last rebuild took.
	LastDurationMS int64 `json:"last_duration_ms"`

	// LastError is the error from the last failed rebuild, if any.
	LastError string `json:"last_error,omitempty"`

	// Orders is the number of orders the models were built from.
	Orders int `json:"orders"`

	// SimilarPairs is the number of stored similarity pairs.
	SimilarPairs int `json:"similar_pairs"`

	// Rules is the number of retained association rules.
	Rules int `json:"rules"`
}
