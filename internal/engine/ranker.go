package engine

import "github.com/cyber-sensei/backend/internal/catalog"

// Ranker imposes a total order over candidate topics for new-topic
// selection. Compare returns a negative value when a should be suggested
// before b, positive when after, and never 0 for distinct topics.
type Ranker interface {
	Compare(a, b catalog.Topic) int
}

// Topics without an ordering hint sort after every hinted topic.
const unorderedHint = 999

// OrderDifficultyRanker ranks by ascending (order hint, difficulty rank),
// breaking ties on topic id. This is the default curriculum heuristic.
type OrderDifficultyRanker struct{}

func (OrderDifficultyRanker) Compare(a, b catalog.Topic) int {
	if c := orderHint(a) - orderHint(b); c != 0 {
		return c
	}
	if c := catalog.DifficultyRank(a.Difficulty) - catalog.DifficultyRank(b.Difficulty); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

// CatalogOrderRanker suggests topics in plain catalog (id) order.
type CatalogOrderRanker struct{}

func (CatalogOrderRanker) Compare(a, b catalog.Topic) int {
	return compareIDs(a.ID, b.ID)
}

func orderHint(t catalog.Topic) int {
	if t.OrderHint <= 0 {
		return unorderedHint
	}
	return t.OrderHint
}

func compareIDs(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
