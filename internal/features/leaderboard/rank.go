package leaderboard

import (
	"sort"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/model"
)

// Score — очки за total благодарностей среди unique разных людей:
// round2(1 + total - total/unique). Сто благодарностей одному человеку
// стоят 1 очко, а сто благодарностей разным людям стоят 100.
func Score(total, unique int) float64 {
	if total == 0 || unique == 0 {
		return 0
	}
	t := float64(total)
	return common.Round2(1 + t - t/float64(unique))
}

type tally struct {
	total    int
	peers    map[int64]struct{}
	origin   int
	weighted float64
}

func bump(m map[int64]*tally, user, peer int64) *tally {
	t, ok := m[user]
	if !ok {
		t = &tally{peers: make(map[int64]struct{})}
		m[user] = t
	}
	t.total++
	t.peers[peer] = struct{}{}
	return t
}

// Rank строит рейтинги по благодарностям. Порядок: очки по убыванию,
// при равенстве меньший user ID выше. size <= 0 означает без ограничения.
func Rank(grants []*model.Grant, size int) *Board {
	givers := make(map[int64]*tally)
	receivers := make(map[int64]*tally)

	for _, g := range grants {
		gt := bump(givers, g.Giver, g.Receiver)
		bump(receivers, g.Receiver, g.Giver)
		if g.Source == model.SourceEcho {
			gt.weighted += EchoWeight
		} else {
			gt.origin++
			gt.weighted += OriginWeight
		}
	}

	b := &Board{
		Givers:         top(givers, size, func(t *tally) float64 { return Score(t.total, len(t.peers)) }),
		Receivers:      top(receivers, size, func(t *tally) float64 { return Score(t.total, len(t.peers)) }),
		WeightedGivers: top(givers, size, func(t *tally) float64 { return t.weighted }),
		InitialGivers:  top(givers, size, func(t *tally) float64 { return float64(t.origin) }),
	}
	return b
}

func top(m map[int64]*tally, size int, score func(*tally) float64) []Entry {
	out := make([]Entry, 0, len(m))
	for user, t := range m {
		s := score(t)
		if s <= 0 {
			continue
		}
		out = append(out, Entry{User: user, Total: t.total, Unique: len(t.peers), Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].User < out[j].User
	})
	if size > 0 && len(out) > size {
		out = out[:size]
	}
	return out
}
