package influence

import (
	"sort"
	"strings"

	"serotonyl.ru/recognition-bot/internal/model"
)

type group struct {
	text    string
	origins []*model.Grant
	echoes  []*model.Grant
}

// Analyze группирует благодарности по полному тексту сообщения (эхо копирует
// его целиком, вместе с упоминаниями) и возвращает влиятельные сообщения и
// их авторов. Очищенный текст идёт только в отчёт. Группа только из эха (исходная
// благодарность вне окна) не учитывается.
func Analyze(grants []*model.Grant, size int) *Report {
	groups := make(map[string]*group)
	var order []string
	for _, g := range grants {
		key := strings.TrimSpace(g.Message)
		gr, ok := groups[key]
		if !ok {
			gr = &group{text: g.Trimmed}
			groups[key] = gr
			order = append(order, key)
		}
		if g.Source == model.SourceEcho {
			gr.echoes = append(gr.echoes, g)
		} else {
			gr.origins = append(gr.origins, g)
		}
	}

	messages := make([]Message, 0)
	echoersByUser := make(map[int64]map[int64]struct{})
	byUser := make(map[int64]*Influencer)
	for _, key := range order {
		gr := groups[key]
		if len(gr.origins) == 0 || len(gr.echoes) == 0 {
			continue
		}
		first := earliest(gr.origins)
		echoers := make(map[int64]struct{})
		for _, e := range gr.echoes {
			echoers[e.Giver] = struct{}{}
		}
		messages = append(messages, Message{
			Text:          gr.text,
			Originator:    first.Giver,
			OriginAt:      first.CreatedAt,
			EchoCount:     len(gr.echoes),
			UniqueEchoers: len(echoers),
			OriginCount:   len(gr.origins),
			TotalCount:    len(gr.origins) + len(gr.echoes),
		})

		inf, ok := byUser[first.Giver]
		if !ok {
			inf = &Influencer{User: first.Giver}
			byUser[first.Giver] = inf
			echoersByUser[first.Giver] = make(map[int64]struct{})
		}
		inf.Messages++
		inf.EchoCount += len(gr.echoes)
		for id := range echoers {
			echoersByUser[first.Giver][id] = struct{}{}
		}
	}

	sort.Slice(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		if a.EchoCount != b.EchoCount {
			return a.EchoCount > b.EchoCount
		}
		if a.UniqueEchoers != b.UniqueEchoers {
			return a.UniqueEchoers > b.UniqueEchoers
		}
		if !a.OriginAt.Equal(b.OriginAt) {
			return a.OriginAt.Before(b.OriginAt)
		}
		return a.Text < b.Text
	})

	influencers := make([]Influencer, 0, len(byUser))
	for user, inf := range byUser {
		inf.UniqueEchoers = len(echoersByUser[user])
		influencers = append(influencers, *inf)
	}
	sort.Slice(influencers, func(i, j int) bool {
		a, b := influencers[i], influencers[j]
		if a.EchoCount != b.EchoCount {
			return a.EchoCount > b.EchoCount
		}
		if a.UniqueEchoers != b.UniqueEchoers {
			return a.UniqueEchoers > b.UniqueEchoers
		}
		return a.User < b.User
	})

	r := &Report{Influential: len(messages)}
	r.Messages = limit(messages, size)
	r.Influencers = limit(influencers, size)
	return r
}

func earliest(grants []*model.Grant) *model.Grant {
	first := grants[0]
	for _, g := range grants[1:] {
		if g.CreatedAt.Before(first.CreatedAt) || (g.CreatedAt.Equal(first.CreatedAt) && g.ID < first.ID) {
			first = g
		}
	}
	return first
}

func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
