// Package idgen генерирует короткие URL-безопасные идентификаторы через nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DebitPrefix — префикс идентификаторов списаний.
const DebitPrefix = "dbt-"

// Alphabet — символы случайной части идентификатора.
const Alphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length — длина случайной части (без префикса).
const Length = 10

// New возвращает идентификатор с префиксом prefix.
func New(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Debit возвращает новый идентификатор списания.
func Debit() (string, error) {
	return New(DebitPrefix)
}
