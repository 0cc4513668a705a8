package main

import (
	"testing"

	"github.com/cyber-sensei/backend/internal/engine"
)

func TestBuildRanker(t *testing.T) {
	if _, ok := buildRanker("catalog-order").(engine.CatalogOrderRanker); !ok {
		t.Error("buildRanker(catalog-order) is not a CatalogOrderRanker")
	}
	if _, ok := buildRanker("order-difficulty").(engine.OrderDifficultyRanker); !ok {
		t.Error("buildRanker(order-difficulty) is not an OrderDifficultyRanker")
	}
	if _, ok := buildRanker("").(engine.OrderDifficultyRanker); !ok {
		t.Error("buildRanker should default to OrderDifficultyRanker")
	}
}
