// Package common — errors.go определяет ошибки, общие для всех модулей.
// Обработчики различают типы проблем через errors.Is / errors.As
// и отправляют пользователю понятные сообщения.
package common

import (
	"errors"
	"fmt"
)

// Базовые категории ошибок. Типизированные ошибки ниже
// сравниваются с ними через errors.Is.
var (
	// ErrValidation — входные данные не прошли проверку
	ErrValidation = errors.New("некорректные данные")
	// ErrNotFound — запись не найдена
	ErrNotFound = errors.New("запись не найдена")
	// ErrStore — хранилище недоступно или вернуло ошибку
	ErrStore = errors.New("ошибка хранилища")
)

// Ошибки баланса и наград
var (
	// ErrInsufficientBalance — баллов на счёте меньше, чем нужно
	ErrInsufficientBalance = errors.New("недостаточно баллов на счёте")
	// ErrUnknownReward — такой награды нет в каталоге
	ErrUnknownReward = errors.New("награда не найдена в каталоге")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессии нет или она истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)

// ValidationError описывает конкретное нарушение правил ввода.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is позволяет писать errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError — короткий конструктор.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError — запись Kind с идентификатором ID отсутствует.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q не найден(а)", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError — короткий конструктор.
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// StoreError оборачивает ошибку драйвера хранилища.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ошибка хранилища (%s): %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// WrapStore заворачивает err в StoreError. Ошибки, уже имеющие
// категорию (валидация, не найдено, хранилище), не трогает.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStore) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
