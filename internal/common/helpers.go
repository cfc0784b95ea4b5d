// Package common содержит общие утилиты, используемые во всём проекте:
// ошибки, временные окна, русскую плюрализацию и форматирование.
package common

import (
	"fmt"
	"math"
	"time"
)

// Clock возвращает текущее время. Сервисы принимают его в конструкторе,
// чтобы тесты могли зафиксировать «сейчас».
type Clock func() time.Time

// SystemClock — реальные часы в UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// FormatBalance форматирует баланс в читабельную строку.
// Пример: FormatBalance(150) → "150 баллов"
func FormatBalance(balance int64) string {
	return fmt.Sprintf("%s %s", FormatNumber(balance), PluralizePoints(balance))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}

// Round2 округляет до двух знаков после запятой.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatDateTime форматирует время как "02.01.2006 15:04" в поясе loc.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

// Truncate обрезает строку до n рун, добавляя многоточие.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
