// Package leaderboard строит рейтинги отправителей и получателей
// благодарностей за окно в N дней.
package leaderboard

// Entry — строка рейтинга.
type Entry struct {
	User int64 `json:"user_id"`
	// Total — число благодарностей
	Total int `json:"total"`
	// Unique — число разных собеседников
	Unique int     `json:"unique"`
	Score  float64 `json:"score"`
}

// Board — все рейтинги за окно.
type Board struct {
	Days      int     `json:"days"`
	Givers    []Entry `json:"givers"`
	Receivers []Entry `json:"receivers"`
	// WeightedGivers: исходная благодарность весит 1.0, подхваченная 0.5
	WeightedGivers []Entry `json:"weighted_givers"`
	// InitialGivers — только исходные благодарности
	InitialGivers []Entry `json:"initial_givers"`
}

// Empty — в окне не было благодарностей.
func (b *Board) Empty() bool {
	return len(b.Givers) == 0 && len(b.Receivers) == 0
}

// Веса источников для WeightedGivers.
const (
	OriginWeight = 1.0
	EchoWeight   = 0.5
)
