package model

import "time"

// Debit — списание баллов (покупка награды или ручное списание).
// Возврат не удаляет запись, а только помечает её.
type Debit struct {
	ID         string     `json:"id"`
	User       int64      `json:"user"`
	Value      int64      `json:"value"`
	Message    string     `json:"message,omitempty"`
	CreatedBy  int64      `json:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Refunded   bool       `json:"refunded"`
	RefundedAt *time.Time `json:"refunded_at,omitempty"`
}

// Member — участник чата, известный боту.
type Member struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name,omitempty"`
	IsBot     bool      `json:"is_bot"`
	JoinedAt  time.Time `json:"joined_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName возвращает отображаемое имя пользователя.
// Если есть @username — возвращает его, иначе — имя + фамилию.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	return name
}
