package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRecomputeTotalsFromLineItems(t *testing.T) {
	cart := Cart{
		CartID: "1234",
		Items: []CartLineItem{
			{ProductID: "milk", Price: decimal.NewFromFloat(1.50), Weight: 1.0, Quantity: 2},
			{ProductID: "bread", Price: decimal.NewFromFloat(2.25), Weight: 0.4, Quantity: 1},
		},
	}

	cart.RecomputeTotals()

	if want := decimal.NewFromFloat(5.25); !cart.TotalPrice.Equal(want) {
		t.Fatalf("expected total price %s, got %s", want, cart.TotalPrice)
	}
	if cart.TotalWeight != 2.4 {
		t.Fatalf("expected total weight 2.4, got %v", cart.TotalWeight)
	}
}

func TestRecomputeTotalsEmptyCart(t *testing.T) {
	cart := Cart{CartID: "1234", TotalWeight: 9.9, TotalPrice: decimal.NewFromInt(42)}
	cart.RecomputeTotals()
	if !cart.TotalPrice.IsZero() || cart.TotalWeight != 0 {
		t.Fatalf("empty cart totals should be zero, got %s / %v", cart.TotalPrice, cart.TotalWeight)
	}
}

func TestFindAndRemoveItem(t *testing.T) {
	cart := Cart{
		Items: []CartLineItem{
			{ProductID: "a"},
			{ProductID: "b"},
			{ProductID: "c"},
		},
	}

	if item := cart.FindItem("b"); item == nil || item.ProductID != "b" {
		t.Fatalf("expected to find item b, got %+v", item)
	}
	if item := cart.FindItem("zzz"); item != nil {
		t.Fatalf("expected nil for missing product")
	}

	if !cart.RemoveItem("b") {
		t.Fatal("expected removal of b to succeed")
	}
	if cart.RemoveItem("b") {
		t.Fatal("second removal should report false")
	}
	if len(cart.Items) != 2 || cart.Items[0].ProductID != "a" || cart.Items[1].ProductID != "c" {
		t.Fatalf("insertion order not preserved: %+v", cart.Items)
	}
}
