// Package model описывает события журнала благодарностей и фильтры выборок.
package model

import "time"

// SystemUserID — отправитель синтетических событий (например, стартовый
// держатель золотого жетона). Настоящих пользователей с таким ID нет.
const SystemUserID int64 = 0

// Source — происхождение благодарности.
type Source string

const (
	// SourceOrigin — благодарность написана автором.
	SourceOrigin Source = "origin"
	// SourceEcho — повтор чужой благодарности (ответ «+1»).
	SourceEcho Source = "echo"
)

// Valid сообщает, известно ли значение.
func (s Source) Valid() bool {
	return s == SourceOrigin || s == SourceEcho
}

// Kind — вид жетона.
type Kind string

const (
	KindStandard Kind = "standard"
	KindGolden   Kind = "golden"
)

// Collection — логическая коллекция событий в хранилище.
type Collection string

const (
	// CollectionGrants — обычные благодарности.
	CollectionGrants Collection = "grants"
	// CollectionGolden — передачи золотого жетона.
	CollectionGolden Collection = "golden_grants"
)

// Grant — одна благодарность: giver отметил receiver.
// Записи только добавляются, никогда не меняются.
type Grant struct {
	ID        int64     `json:"id"`
	Giver     int64     `json:"giver"`
	Receiver  int64     `json:"receiver"`
	Message   string    `json:"message"`
	Trimmed   string    `json:"trimmed_message"`
	ChatID    int64     `json:"chat_id"`
	Source    Source    `json:"source"`
	Kind      Kind      `json:"kind"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Group — результат группировки благодарностей по ключу.
type Group struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// GroupKey — поле, по которому группируются благодарности.
type GroupKey string

const (
	GroupByMessage  GroupKey = "message"
	GroupByReceiver GroupKey = "receiver"
	GroupByGiver    GroupKey = "giver"
)
