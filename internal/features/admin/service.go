// Package admin — service.go содержит аутентификацию, сессии и списания.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
	"serotonyl.ru/recognition-bot/internal/metrics"
	"serotonyl.ru/recognition-bot/internal/model"
)

// Service управляет админ-доступом. Сессии и счётчики попыток живут
// в памяти процесса: после перезапуска нужно войти заново.
type Service struct {
	ledger *ledger.Service
	cfg    *config.Config

	mu       sync.Mutex
	sessions map[int64]*Session
	failures map[int64][]time.Time
	states   map[int64]*AdminState
}

// NewService создаёт сервис админ-доступа.
func NewService(l *ledger.Service, cfg *config.Config) *Service {
	return &Service{
		ledger:   l,
		cfg:      cfg,
		sessions: make(map[int64]*Session),
		failures: make(map[int64][]time.Time),
		states:   make(map[int64]*AdminState),
	}
}

// IsAdmin — входит ли пользователь в ADMIN_IDS.
func (s *Service) IsAdmin(userID int64) bool {
	return s.cfg.IsAdmin(userID)
}

// recentFailures отбрасывает попытки старше AttemptWindow. Вызывать под mu.
func (s *Service) recentFailures(userID int64, now time.Time) int {
	kept := s.failures[userID][:0]
	for _, at := range s.failures[userID] {
		if now.Sub(at) < AttemptWindow {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(s.failures, userID)
		return 0
	}
	s.failures[userID] = kept
	return len(kept)
}

// Login проверяет пароль администратора с использованием Argon2id.
// Защита от brute-force: MaxAttempts неудачных попыток = блокировка на час.
func (s *Service) Login(ctx context.Context, userID int64, password string) (*Session, error) {
	if !s.IsAdmin(userID) {
		return nil, common.ErrNotAdmin
	}
	now := s.ledger.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recentFailures(userID, now) >= MaxAttempts {
		metrics.Rejected("login", "too_many_attempts")
		return nil, common.ErrTooManyAttempts
	}

	if !verifyArgon2id(password, s.cfg.AdminPasswordHash) {
		s.failures[userID] = append(s.failures[userID], now)
		metrics.Rejected("login", "wrong_password")
		log.WithField("user_id", userID).Warn("Неудачная попытка входа в админку")
		return nil, common.ErrWrongPassword
	}

	delete(s.failures, userID)
	session := &Session{
		UserID:          userID,
		Token:           generateSecureToken(),
		AuthenticatedAt: now,
		ExpiresAt:       now.Add(s.cfg.AdminSessionTTL),
	}
	s.sessions[userID] = session
	log.WithFields(log.Fields{
		"user_id":    userID,
		"expires_at": session.ExpiresAt,
	}).Info("Администратор вошёл")
	return session, nil
}

// Logout закрывает сессию.
func (s *Service) Logout(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// HasActiveSession проверяет, есть ли у пользователя активная сессия.
func (s *Service) HasActiveSession(userID int64) bool {
	return s.authorize(userID) == nil
}

func (s *Service) authorize(userID int64) error {
	if !s.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	now := s.ledger.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return common.ErrSessionExpired
	}
	if !now.Before(session.ExpiresAt) {
		delete(s.sessions, userID)
		return common.ErrSessionExpired
	}
	return nil
}

// Deduct списывает баллы вручную. Баланс не проверяется: админ может
// увести его в минус.
func (s *Service) Deduct(ctx context.Context, admin, user, value int64, message string) (*model.Debit, error) {
	if err := s.authorize(admin); err != nil {
		return nil, err
	}
	d, err := s.ledger.RecordDebit(ctx, ledger.DebitInput{
		User:      user,
		Value:     value,
		Message:   message,
		CreatedBy: admin,
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"admin_id": admin, "debit_id": d.ID}).Info("Ручное списание")
	return d, nil
}

// Refund возвращает списание.
func (s *Service) Refund(ctx context.Context, admin int64, debitID string) (*ledger.RefundResult, error) {
	if err := s.authorize(admin); err != nil {
		return nil, err
	}
	return s.ledger.RefundDebit(ctx, debitID)
}

// GetState возвращает текущее состояние диалога.
func (s *Service) GetState(userID int64) *AdminState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		return nil
	}
	if s.ledger.Now().After(state.ExpiresAt) {
		delete(s.states, userID)
		return nil
	}
	return state
}

// SetState устанавливает состояние диалога с 5-минутным таймаутом.
func (s *Service) SetState(userID int64, stateName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = &AdminState{State: stateName, ExpiresAt: s.ledger.Now().Add(stateTTL)}
}

// ClearState сбрасывает состояние диалога.
func (s *Service) ClearState(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

// --- Криптографические утилиты ---

// Параметры Argon2id для новых хешей.
const (
	argonMemory      uint32 = 64 * 1024
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
	argonSaltLength         = 16
)

// HashPassword возвращает PHC-строку Argon2id для ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", common.NewValidationError("password", "пароль не может быть пустым")
	}
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// verifyArgon2id проверяет пароль по хешу Argon2id.
// Формат хеша: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}

// generateSecureToken генерирует случайный токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
