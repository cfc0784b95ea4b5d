package leaderboard

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"serotonyl.ru/recognition-bot/internal/model"
)

// Property: Score(total, 1) == 1 и Score(n, n) == n для любого n >= 1.
func TestScoreCollapses(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("one partner always scores 1", prop.ForAll(
		func(total int) bool {
			return Score(total, 1) == 1
		},
		gen.IntRange(1, 10000),
	))

	properties.Property("one grant per partner scores total", prop.ForAll(
		func(n int) bool {
			return Score(n, n) == float64(n)
		},
		gen.IntRange(1, 10000),
	))

	properties.Property("score never exceeds total", prop.ForAll(
		func(total, unique int) bool {
			if unique > total {
				unique = total
			}
			s := Score(total, unique)
			return s >= 1 && s <= float64(total)
		},
		gen.IntRange(1, 1000),
		gen.IntRange(1, 1000),
	))

	properties.TestingRun(t)
}

// Property: рейтинг не зависит от порядка благодарностей и отсортирован.
func TestRankDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("rank is order independent and sorted", prop.ForAll(
		func(pairs []int64) bool {
			var grants []*model.Grant
			for i := 0; i+1 < len(pairs); i += 2 {
				giver, receiver := pairs[i], pairs[i+1]
				if giver == receiver {
					continue
				}
				grants = append(grants, &model.Grant{Giver: giver, Receiver: receiver, Source: model.SourceOrigin})
			}
			reversed := make([]*model.Grant, len(grants))
			for i, g := range grants {
				reversed[len(grants)-1-i] = g
			}

			a, b := Rank(grants, 10), Rank(reversed, 10)
			if len(a.Givers) != len(b.Givers) || len(a.Givers) > 10 {
				return false
			}
			for i := range a.Givers {
				if a.Givers[i] != b.Givers[i] {
					return false
				}
				if i > 0 && a.Givers[i-1].Score < a.Givers[i].Score {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(1, 15)),
	))

	properties.TestingRun(t)
}
