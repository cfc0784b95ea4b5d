// Package testutil — общие заготовки для тестов: часы, конфигурация,
// запись отправленных сообщений.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"serotonyl.ru/recognition-bot/internal/config"
)

// Clock — ручные часы.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock создаёт часы, стоящие на t.
func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Config — конфигурация с дефолтами, в поясе UTC.
func Config() *config.Config {
	return &config.Config{
		StorageDriver:     config.DriverMemory,
		AppTimezone:       "UTC",
		StoreTimeout:      time.Second,
		BotMaxInflight:    4,
		RecognizeTrigger:  "🤜",
		GoldenTrigger:     "🏆",
		GoldMultiplier:    25,
		GoldenBootstrapAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DailyLimit:        5,
		MinMessageLength:  20,
		LeaderboardSize:   10,
		AdminSessionTTL:   time.Hour,
		ReportDays:        7,
		RateLimitPerSec:   1,
		RateLimitBurst:    5,
	}
}

// Message — отправленное сообщение.
type Message struct {
	ChatID int64
	Text   string
}

// Sender запоминает отправленные сообщения. Для чатов из FailChats
// возвращает заданную ошибку.
type Sender struct {
	mu        sync.Mutex
	Messages  []Message
	FailChats map[int64]error
}

func (s *Sender) SendText(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailChats[chatID]; ok {
		return err
	}
	s.Messages = append(s.Messages, Message{ChatID: chatID, Text: text})
	return nil
}

// Last — текст последнего сообщения или пустая строка.
func (s *Sender) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1].Text
}

// Names — справочник имён; неизвестные отображаются как id<N>.
type Names map[int64]string

func (n Names) DisplayName(_ context.Context, userID int64) string {
	if name, ok := n[userID]; ok {
		return name
	}
	return fmt.Sprintf("id%d", userID)
}
