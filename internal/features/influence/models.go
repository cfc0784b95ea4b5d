// Package influence ищет благодарности, которые подхватили другие:
// исходное сообщение и его эхо с тем же текстом.
package influence

import "time"

// TopSize — сколько сообщений и авторов попадает в выдачу.
const TopSize = 10

// Message — влиятельное сообщение: у него есть хотя бы одна исходная
// благодарность и хотя бы одно эхо в пределах окна.
type Message struct {
	Text string `json:"message"`
	// Originator — автор самой ранней исходной благодарности
	Originator int64     `json:"originator"`
	OriginAt   time.Time `json:"origin_at"`
	EchoCount  int       `json:"echo_count"`
	// UniqueEchoers — число разных авторов эха
	UniqueEchoers int `json:"unique_echoers"`
	OriginCount   int `json:"origin_count"`
	TotalCount    int `json:"total_count"`
}

// Influencer — сводка по автору влиятельных сообщений.
type Influencer struct {
	User          int64 `json:"user_id"`
	Messages      int   `json:"messages"`
	EchoCount     int   `json:"echo_count"`
	UniqueEchoers int   `json:"unique_echoers"`
}

// Report — результат анализа окна.
type Report struct {
	Days        int          `json:"days"`
	Messages    []Message    `json:"messages"`
	Influencers []Influencer `json:"influencers"`
	// Influential — сколько всего влиятельных сообщений до обрезки
	Influential int `json:"influential"`
}
