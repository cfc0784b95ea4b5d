// Package ledger — единственная точка записи и чтения журнала благодарностей
// и списаний. Аналитика (баланс, рейтинги, отчёты) читает журнал только
// через этот пакет.
package ledger

import "serotonyl.ru/recognition-bot/internal/model"

// GrantInput — данные для записи одной благодарности.
type GrantInput struct {
	Giver    int64
	Receiver int64
	Message  string
	// Trimmed — текст без упоминаний и триггеров; пусто — вычисляется из Message.
	Trimmed string
	ChatID  int64
	Source  model.Source
	Tags    []string
}

// DebitInput — данные для списания.
type DebitInput struct {
	User      int64
	Value     int64
	Message   string
	CreatedBy int64
}

// Query — выборка благодарностей.
//
// User == 0 — все пользователи (Role игнорируется).
// Days <= 0 — за всё время. Timezone пустой — пояс приложения.
type Query struct {
	User     int64
	Role     model.Role
	Timezone string
	Days     int
	// ExcludeSystem убирает синтетические события (SystemUserID).
	ExcludeSystem bool
}

// DebitQuery — выборка списаний.
type DebitQuery struct {
	User       int64
	ActiveOnly bool
}

// RefundResult — итог возврата. Changed == false означает, что
// списание уже было возвращено раньше.
type RefundResult struct {
	Debit   *model.Debit
	Changed bool
}

// Receiver — получатель благодарности в пользовательском сценарии.
type Receiver struct {
	ID    int64
	IsBot bool
}

// GratitudeInput — благодарность из чата: один отправитель, несколько
// получателей, count повторов триггера.
type GratitudeInput struct {
	Giver      int64
	GiverIsBot bool
	Receivers  []Receiver
	Count      int
	Message    string
	ChatID     int64
	Source     model.Source
	Timezone   string
}

// Unlimited — DailyRemaining для пользователей без лимита.
const Unlimited = -1
