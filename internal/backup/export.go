// Package backup выгружает журнал в JSON Lines и складывает выгрузку
// в объектное хранилище (S3 или совместимое).
package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store"
)

// FormatVersion — версия формата выгрузки.
const FormatVersion = 1

// Типы строк выгрузки
const (
	TypeHeader = "header"
	TypeGrant  = "grant"
	TypeGolden = "golden"
	TypeDebit  = "debit"
	TypeMember = "member"
)

// Header — первая строка выгрузки.
type Header struct {
	Type      string         `json:"type"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	Counts    map[string]int `json:"counts"`
}

// Record — одна строка выгрузки после заголовка.
type Record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Snapshot — всё содержимое хранилища на момент выгрузки.
type Snapshot struct {
	Grants  []*model.Grant
	Golden  []*model.Grant
	Debits  []*model.Debit
	Members []*model.Member
}

// Records — число записей без заголовка.
func (s *Snapshot) Records() int {
	return len(s.Grants) + len(s.Golden) + len(s.Debits) + len(s.Members)
}

// Collect читает хранилище целиком.
func Collect(ctx context.Context, st store.Store) (*Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Grants, err = st.FindGrants(ctx, model.CollectionGrants, nil, store.FindOptions{}); err != nil {
		return nil, fmt.Errorf("ошибка чтения благодарностей: %w", err)
	}
	if snap.Golden, err = st.FindGrants(ctx, model.CollectionGolden, nil, store.FindOptions{}); err != nil {
		return nil, fmt.Errorf("ошибка чтения золотых жетонов: %w", err)
	}
	if snap.Debits, err = st.FindDebits(ctx, nil); err != nil {
		return nil, fmt.Errorf("ошибка чтения списаний: %w", err)
	}
	if snap.Members, err = st.ListMembers(ctx); err != nil {
		return nil, fmt.Errorf("ошибка чтения участников: %w", err)
	}
	return &snap, nil
}

// WriteJSONL пишет заголовок и записи снимка, по одной на строку.
func WriteJSONL(w io.Writer, snap *Snapshot, createdAt time.Time) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	header := Header{
		Type:      TypeHeader,
		Version:   FormatVersion,
		CreatedAt: createdAt.UTC(),
		Counts: map[string]int{
			TypeGrant:  len(snap.Grants),
			TypeGolden: len(snap.Golden),
			TypeDebit:  len(snap.Debits),
			TypeMember: len(snap.Members),
		},
	}
	if err := enc.Encode(header); err != nil {
		return fmt.Errorf("ошибка записи заголовка: %w", err)
	}

	for _, g := range snap.Grants {
		if err := enc.Encode(Record{Type: TypeGrant, Data: g}); err != nil {
			return err
		}
	}
	for _, g := range snap.Golden {
		if err := enc.Encode(Record{Type: TypeGolden, Data: g}); err != nil {
			return err
		}
	}
	for _, d := range snap.Debits {
		if err := enc.Encode(Record{Type: TypeDebit, Data: d}); err != nil {
			return err
		}
	}
	for _, m := range snap.Members {
		if err := enc.Encode(Record{Type: TypeMember, Data: m}); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Export — Collect + WriteJSONL. Возвращает число записей без заголовка.
func Export(ctx context.Context, st store.Store, w io.Writer, now time.Time) (int, error) {
	snap, err := Collect(ctx, st)
	if err != nil {
		return 0, err
	}
	if err := WriteJSONL(w, snap, now); err != nil {
		return 0, err
	}
	return snap.Records(), nil
}
