// Package common — pluralize.go склоняет русские существительные после числительных.
package common

// Pluralize выбирает форму слова для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
//
// Пример:
//
//	Pluralize(21, "балл", "балла", "баллов") → "балл"
func Pluralize(n int64, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizePoints — форма слова «балл».
func PluralizePoints(n int64) string {
	return Pluralize(n, "балл", "балла", "баллов")
}

// PluralizeDays — форма слова «день».
func PluralizeDays(n int) string {
	return Pluralize(int64(n), "день", "дня", "дней")
}

// PluralizeThanks — форма слова «благодарность».
func PluralizeThanks(n int64) string {
	return Pluralize(n, "благодарность", "благодарности", "благодарностей")
}
