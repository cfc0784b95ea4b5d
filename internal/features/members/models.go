// Package members ведёт справочник участников чата: кто писал или
// вступал, их @username и имена для ответов и отчётов.
package members

// UserInfo — данные пользователя из Telegram-апдейта.
type UserInfo struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	IsBot     bool
}
