package model

import "time"

// Role — сторона благодарности, по которой фильтруем пользователя.
type Role string

const (
	RoleGiver    Role = "giver"
	RoleReceiver Role = "receiver"
	// RoleOwner — владелец списания.
	RoleOwner Role = "owner"
)

// Filter — условие выборки. Реализации перечислены ниже; хранилища
// разбирают их через type switch. nil означает «всё».
type Filter interface {
	MatchGrant(g *Grant) bool
	MatchDebit(d *Debit) bool
}

// ByUser — события конкретного пользователя в заданной роли.
type ByUser struct {
	Role Role
	User int64
}

func (f ByUser) MatchGrant(g *Grant) bool {
	switch f.Role {
	case RoleGiver:
		return g.Giver == f.User
	case RoleReceiver:
		return g.Receiver == f.User
	}
	return false
}

func (f ByUser) MatchDebit(d *Debit) bool {
	return f.Role == RoleOwner && d.User == f.User
}

// ByWindow — события не раньше Since. Нулевой Since пропускает всё.
type ByWindow struct {
	Since time.Time
}

func (f ByWindow) MatchGrant(g *Grant) bool {
	return f.Since.IsZero() || !g.CreatedAt.Before(f.Since)
}

func (f ByWindow) MatchDebit(d *Debit) bool {
	return f.Since.IsZero() || !d.CreatedAt.Before(f.Since)
}

// NotFrom исключает благодарности от указанного отправителя.
type NotFrom struct {
	User int64
}

func (f NotFrom) MatchGrant(g *Grant) bool { return g.Giver != f.User }

func (f NotFrom) MatchDebit(*Debit) bool { return true }

// Unrefunded — только действующие (не возвращённые) списания.
type Unrefunded struct{}

func (Unrefunded) MatchGrant(*Grant) bool { return true }

func (Unrefunded) MatchDebit(d *Debit) bool { return !d.Refunded }

// Combined — логическое И над вложенными фильтрами.
type Combined struct {
	Filters []Filter
}

// All собирает Combined, пропуская nil.
func All(filters ...Filter) Filter {
	out := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			out = append(out, f)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return Combined{Filters: out}
}

func (f Combined) MatchGrant(g *Grant) bool {
	for _, sub := range f.Filters {
		if sub != nil && !sub.MatchGrant(g) {
			return false
		}
	}
	return true
}

func (f Combined) MatchDebit(d *Debit) bool {
	for _, sub := range f.Filters {
		if sub != nil && !sub.MatchDebit(d) {
			return false
		}
	}
	return true
}

// MatchGrant применяет f к g, считая nil пропускающим всё.
func MatchGrant(f Filter, g *Grant) bool {
	return f == nil || f.MatchGrant(g)
}

// MatchDebit применяет f к d, считая nil пропускающим всё.
func MatchDebit(f Filter, d *Debit) bool {
	return f == nil || f.MatchDebit(d)
}
