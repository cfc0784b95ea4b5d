package common

import (
	"fmt"
	"time"
)

// Window — нижняя граница выборки по времени.
// Нулевое значение Since означает «за всё время».
type Window struct {
	Since time.Time
}

// Unbounded сообщает, что окно не ограничено снизу.
func (w Window) Unbounded() bool {
	return w.Since.IsZero()
}

// Contains проверяет, попадает ли момент t в окно (t >= Since).
func (w Window) Contains(t time.Time) bool {
	return w.Unbounded() || !t.Before(w.Since)
}

// ResolveWindow переводит «последние days дней в поясе tz» в момент UTC.
//
// days <= 0 — окно без ограничения. Иначе граница — локальная полночь
// сегодняшнего дня минус (days-1) календарных дней. Сдвиг считается по
// календарю пояса, а не фиксированным смещением, поэтому переходы на
// летнее время не сбивают границу.
func ResolveWindow(tz string, days int, now time.Time) (Window, error) {
	if days <= 0 {
		return Window{}, nil
	}
	loc, err := LoadLocation(tz)
	if err != nil {
		return Window{}, err
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()-(days-1), 0, 0, 0, 0, loc)
	return Window{Since: midnight.UTC()}, nil
}

// LoadLocation загружает часовой пояс. Пустое или неизвестное имя —
// ошибка валидации.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, NewValidationError("timezone", "часовой пояс не задан")
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, NewValidationError("timezone", fmt.Sprintf("неизвестный часовой пояс %q", tz))
	}
	return loc, nil
}

// StartOfDay возвращает локальную полночь дня, в который попадает t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
