// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package catalog

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/schedule"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{12.5, 12.5},
		{0, 0},
		{-3, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		if got := Number(tt.in); got != tt.want {
			t.Errorf("Number(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewSnapshot_Sanitizes(t *testing.T) {
	d := Data{
		Products: []Product{
			{ID: "p1", Price: math.NaN(), Inventory: -4, Tags: []string{" sale ", ""}},
			{ID: "", Title: "no id"},
			{ID: "p2", Price: 10},
			{ID: "p2", Price: 12},
		},
		Orders: []Order{
			{ID: "o1", Items: []LineItem{{ProductID: "p1", Quantity: -1}, {ProductID: "p2", Quantity: 2, Price: -5}}},
			{ID: "o2", Items: []LineItem{{ProductID: "", Quantity: 1}}},
		},
	}
	s := NewSnapshot(d, epoch)

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	p1, _ := s.Product("p1")
	if p1.Price != 0 || p1.Inventory != 0 || len(p1.Tags) != 1 || p1.Tags[0] != "sale" {
		t.Errorf("p1 = %+v", p1)
	}
	p2, _ := s.Product("p2")
	if p2.Price != 12 {
		t.Errorf("duplicate id should keep last record, price = %v", p2.Price)
	}
	if len(s.Orders()) != 1 || len(s.Orders()[0].Items) != 1 || s.Orders()[0].Items[0].Price != 0 {
		t.Errorf("orders = %+v", s.Orders())
	}
}

func TestProductHelpers(t *testing.T) {
	p := Product{Price: 60, CompareAtPrice: 80, Tags: []string{"BestSeller"}, Available: true, Inventory: 2}
	if !p.OnSale() {
		t.Error("OnSale() = false")
	}
	if got := p.Discount(); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("Discount() = %v, want 0.25", got)
	}
	if !p.HasTag("bestseller") {
		t.Error("HasTag should ignore case")
	}
	if !p.Purchasable() {
		t.Error("Purchasable() = false")
	}
	if (Order{ID: "9"}).Customer() != "order:9" {
		t.Error("guest order customer should fall back to order id")
	}
}

func TestCatalog_RefreshKeepsPreviousOnFailure(t *testing.T) {
	src := NewStaticSource(Data{Products: []Product{{ID: "p1"}}})
	rec := &events.Recorder{}
	c := New(src, src, rec, schedule.NewManual(epoch), zerolog.Nop())

	if c.Snapshot() == nil || c.Snapshot().Len() != 0 {
		t.Fatal("initial snapshot should be empty and non-nil")
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if c.Snapshot().Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Snapshot().Len())
	}

	src.FailWith(errors.New("collaborator down"))
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh should report the failure")
	}
	if c.Snapshot().Len() != 1 {
		t.Errorf("failed refresh replaced snapshot, Len() = %d", c.Snapshot().Len())
	}

	topics := rec.Topics()
	if len(topics) != 1 || topics[0] != events.TopicCatalogRefreshed {
		t.Errorf("published %v, want one catalog refresh", topics)
	}
}

func TestCatalog_CartOperations(t *testing.T) {
	src := NewStaticSource(Data{Products: []Product{{ID: "p1", Price: 10}}})
	c := New(src, src, nil, nil, zerolog.Nop())
	ctx := context.Background()

	cart, err := c.AddToCart(ctx, "s1", "p1", 2)
	if err != nil || cart.Total != 20 {
		t.Fatalf("AddToCart = (%+v, %v)", cart, err)
	}
	if ids := c.Cart(ctx, "s1").ProductIDs(); len(ids) != 1 || ids[0] != "p1" {
		t.Errorf("cart ids = %v", ids)
	}

	src.FailWith(errors.New("down"))
	if _, err := c.RemoveFromCart(ctx, "s1", "p1"); !errors.Is(err, ErrCartUnavailable) {
		t.Errorf("RemoveFromCart err = %v, want ErrCartUnavailable", err)
	}

	noCart := New(src, nil, nil, nil, zerolog.Nop())
	if _, err := noCart.AddToCart(ctx, "s1", "p1", 1); !errors.Is(err, ErrNoCart) {
		t.Errorf("AddToCart without cart source err = %v", err)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	seed := `{"products":[{"id":"p1","price":19.99,"product_type":"Shoes","created_at":"2026-02-01T00:00:00Z"}],
	          "orders":[{"id":"o1","user_id":"u1","items":[{"product_id":"p1","quantity":1,"price":19.99}]}]}`
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := FileSource{Path: path}.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(d.Products) != 1 || d.Products[0].ProductType != "Shoes" || len(d.Orders) != 1 {
		t.Errorf("data = %+v", d)
	}

	if _, err := (FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Fetch(context.Background()); err == nil {
		t.Error("missing file should fail")
	}
}
