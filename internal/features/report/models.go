// Package report строит отчёты по журналу: дневной ряд, отчёт по
// пользователю, сводку для чатов и еженедельную рассылку.
package report

import "serotonyl.ru/recognition-bot/internal/features/leaderboard"

// DayPoint — число благодарностей за локальный календарный день.
type DayPoint struct {
	Date  string `json:"date"` // 2006-01-02 в поясе отчёта
	Count int    `json:"count"`
}

// WeekPoint — число благодарностей за неделю, начиная с понедельника.
type WeekPoint struct {
	WeekStart string `json:"week_start"`
	Count     int    `json:"count"`
}

// MessageCount — сколько раз пользователя благодарили одним текстом.
type MessageCount struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

// UserReport — отчёт о полученных благодарностях.
type UserReport struct {
	User        int64          `json:"user_id"`
	Days        int            `json:"days"`
	Total       int            `json:"total"`
	TopMessages []MessageCount `json:"top_messages"`
	Weekly      []WeekPoint    `json:"weekly"`
}

// Summary — сводка по всем чатам за окно.
type Summary struct {
	Days         int                 `json:"days"`
	Grants       int                 `json:"grants"`
	Echoes       int                 `json:"echoes"`
	Givers       int                 `json:"givers"`
	Receivers    int                 `json:"receivers"`
	Golden       int                 `json:"golden_handoffs"`
	TopReceivers []leaderboard.Entry `json:"top_receivers"`
}

// BatchResult — итог рассылки: ошибка одного чата не мешает остальным.
type BatchResult struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Errors    map[int64]error `json:"-"`
}

// TopMessagesSize — сколько текстов попадает в отчёт по пользователю.
const TopMessagesSize = 10
