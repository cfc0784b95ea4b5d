// Package postgres — queries.go содержит SQL-запросы хранилища.
// Каждая функция выполняет один запрос через querier, поэтому работает
// одинаково и на пуле, и внутри транзакции.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store"
)

// querier — общее подмножество *pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const grantColumns = `id, giver, receiver, message, trimmed_message, chat_id, source, kind, tags, created_at`

const uniqueViolation = "23505"

// tableFor сопоставляет коллекции таблицу. Имена таблиц не берутся
// из пользовательского ввода.
func tableFor(c model.Collection) (string, error) {
	switch c {
	case model.CollectionGrants:
		return "grants", nil
	case model.CollectionGolden:
		return "golden_grants", nil
	}
	return "", common.NewValidationError("collection", fmt.Sprintf("неизвестная коллекция %q", c))
}

// whereBuilder собирает WHERE из типизированных фильтров.
type whereBuilder struct {
	debits  bool
	clauses []string
	args    []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *whereBuilder) add(f model.Filter) error {
	switch v := f.(type) {
	case nil:
	case model.ByUser:
		col := ""
		switch {
		case !b.debits && v.Role == model.RoleGiver:
			col = "giver"
		case !b.debits && v.Role == model.RoleReceiver:
			col = "receiver"
		case b.debits && v.Role == model.RoleOwner:
			col = "user_id"
		}
		if col == "" {
			b.clauses = append(b.clauses, "FALSE")
			return nil
		}
		b.clauses = append(b.clauses, col+" = "+b.arg(v.User))
	case model.ByWindow:
		if !v.Since.IsZero() {
			b.clauses = append(b.clauses, "created_at >= "+b.arg(v.Since.UTC()))
		}
	case model.NotFrom:
		if !b.debits {
			b.clauses = append(b.clauses, "giver <> "+b.arg(v.User))
		}
	case model.Unrefunded:
		if b.debits {
			b.clauses = append(b.clauses, "NOT refunded")
		}
	case model.Combined:
		for _, sub := range v.Filters {
			if err := b.add(sub); err != nil {
				return err
			}
		}
	default:
		return common.NewValidationError("filter", fmt.Sprintf("фильтр %T не поддерживается", f))
	}
	return nil
}

// buildWhere возвращает " WHERE ..." (или пустую строку) и аргументы.
func buildWhere(f model.Filter, debits bool) (string, []any, error) {
	b := &whereBuilder{debits: debits}
	if err := b.add(f); err != nil {
		return "", nil, err
	}
	if len(b.clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(b.clauses, " AND "), b.args, nil
}

func scanGrant(row pgx.Row) (*model.Grant, error) {
	var (
		g            model.Grant
		source, kind string
	)
	if err := row.Scan(
		&g.ID, &g.Giver, &g.Receiver, &g.Message, &g.Trimmed,
		&g.ChatID, &source, &kind, &g.Tags, &g.CreatedAt,
	); err != nil {
		return nil, err
	}
	g.Source = model.Source(source)
	g.Kind = model.Kind(kind)
	g.CreatedAt = g.CreatedAt.UTC()
	return &g, nil
}

func queryInsertGrant(ctx context.Context, q querier, c model.Collection, g *model.Grant) error {
	table, err := tableFor(c)
	if err != nil {
		return err
	}
	tags := g.Tags
	if tags == nil {
		tags = []string{}
	}
	query := `
		INSERT INTO ` + table + ` (giver, receiver, message, trimmed_message, chat_id, source, kind, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = q.QueryRow(ctx, query,
		g.Giver, g.Receiver, g.Message, g.Trimmed, g.ChatID,
		string(g.Source), string(g.Kind), tags, g.CreatedAt.UTC(),
	).Scan(&g.ID)
	return common.WrapStore("insert grant", err)
}

func queryFindGrants(ctx context.Context, q querier, c model.Collection, f model.Filter, opts store.FindOptions) ([]*model.Grant, error) {
	table, err := tableFor(c)
	if err != nil {
		return nil, err
	}
	where, args, err := buildWhere(f, false)
	if err != nil {
		return nil, err
	}
	order := " ORDER BY created_at ASC, id ASC"
	if opts.Newest {
		order = " ORDER BY created_at DESC, id DESC"
	}
	query := "SELECT " + grantColumns + " FROM " + table + where + order
	if opts.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(opts.Limit)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, common.WrapStore("find grants", err)
	}
	defer rows.Close()

	var out []*model.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, common.WrapStore("scan grant", err)
		}
		out = append(out, g)
	}
	return out, common.WrapStore("find grants", rows.Err())
}

func queryCountGrants(ctx context.Context, q querier, c model.Collection, f model.Filter) (int64, error) {
	table, err := tableFor(c)
	if err != nil {
		return 0, err
	}
	where, args, err := buildWhere(f, false)
	if err != nil {
		return 0, err
	}
	var n int64
	err = q.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+where, args...).Scan(&n)
	return n, common.WrapStore("count grants", err)
}

func queryLatestGrant(ctx context.Context, q querier, c model.Collection, f model.Filter) (*model.Grant, error) {
	found, err := queryFindGrants(ctx, q, c, f, store.FindOptions{Newest: true, Limit: 1})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

func queryGroupGrants(ctx context.Context, q querier, c model.Collection, f model.Filter, key model.GroupKey, limit int) ([]model.Group, error) {
	table, err := tableFor(c)
	if err != nil {
		return nil, err
	}
	var expr string
	switch key {
	case model.GroupByMessage:
		expr = "trimmed_message"
	case model.GroupByReceiver:
		expr = "receiver::text"
	case model.GroupByGiver:
		expr = "giver::text"
	default:
		return nil, common.NewValidationError("group", fmt.Sprintf("неизвестный ключ группировки %q", key))
	}
	where, args, err := buildWhere(f, false)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + expr + ", COUNT(*) FROM " + table + where + " GROUP BY 1 ORDER BY 2 DESC, 1 ASC"
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, common.WrapStore("group grants", err)
	}
	defer rows.Close()

	var out []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, common.WrapStore("scan group", err)
		}
		out = append(out, g)
	}
	return out, common.WrapStore("group grants", rows.Err())
}

func queryInsertDebit(ctx context.Context, q querier, d *model.Debit) error {
	query := `
		INSERT INTO debits (id, user_id, value, message, created_by, created_at, refunded)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
	`
	_, err := q.Exec(ctx, query, d.ID, d.User, d.Value, d.Message, d.CreatedBy, d.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.NewValidationError("id", "списание с таким ID уже есть")
	}
	return common.WrapStore("insert debit", err)
}

const debitColumns = `id, user_id, value, message, created_by, created_at, refunded, refunded_at`

func scanDebit(row pgx.Row) (*model.Debit, error) {
	var d model.Debit
	if err := row.Scan(&d.ID, &d.User, &d.Value, &d.Message, &d.CreatedBy, &d.CreatedAt, &d.Refunded, &d.RefundedAt); err != nil {
		return nil, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	if d.RefundedAt != nil {
		at := d.RefundedAt.UTC()
		d.RefundedAt = &at
	}
	return &d, nil
}

func queryGetDebit(ctx context.Context, q querier, id string) (*model.Debit, error) {
	d, err := scanDebit(q.QueryRow(ctx, "SELECT "+debitColumns+" FROM debits WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("списание", id)
	}
	if err != nil {
		return nil, common.WrapStore("get debit", err)
	}
	return d, nil
}

func queryFindDebits(ctx context.Context, q querier, f model.Filter) ([]*model.Debit, error) {
	where, args, err := buildWhere(f, true)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, "SELECT "+debitColumns+" FROM debits"+where+" ORDER BY created_at ASC, id ASC", args...)
	if err != nil {
		return nil, common.WrapStore("find debits", err)
	}
	defer rows.Close()

	var out []*model.Debit
	for rows.Next() {
		d, err := scanDebit(rows)
		if err != nil {
			return nil, common.WrapStore("scan debit", err)
		}
		out = append(out, d)
	}
	return out, common.WrapStore("find debits", rows.Err())
}

func querySumDebits(ctx context.Context, q querier, f model.Filter) (int64, error) {
	where, args, err := buildWhere(f, true)
	if err != nil {
		return 0, err
	}
	var sum int64
	err = q.QueryRow(ctx, "SELECT COALESCE(SUM(value), 0) FROM debits"+where, args...).Scan(&sum)
	return sum, common.WrapStore("sum debits", err)
}

func queryMarkRefunded(ctx context.Context, q querier, id string, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx,
		"UPDATE debits SET refunded = TRUE, refunded_at = $2 WHERE id = $1 AND NOT refunded",
		id, at.UTC(),
	)
	if err != nil {
		return false, common.WrapStore("refund debit", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM debits WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, common.WrapStore("refund debit", err)
	}
	if !exists {
		return false, common.NewNotFoundError("списание", id)
	}
	return false, nil
}

// queryUpsertMember на конфликте обновляет имя и username, но не дату вступления.
func queryUpsertMember(ctx context.Context, q querier, m *model.Member) error {
	query := `
		INSERT INTO members (user_id, username, first_name, last_name, is_bot, joined_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    is_bot = EXCLUDED.is_bot,
		    updated_at = NOW()
	`
	joined := m.JoinedAt
	if joined.IsZero() {
		joined = time.Now().UTC()
	}
	_, err := q.Exec(ctx, query, m.UserID, m.Username, m.FirstName, m.LastName, m.IsBot, joined)
	return common.WrapStore("upsert member", err)
}

const memberColumns = `user_id, COALESCE(username, ''), first_name, COALESCE(last_name, ''), is_bot, joined_at, updated_at`

func scanMember(row pgx.Row) (*model.Member, error) {
	var m model.Member
	err := row.Scan(&m.UserID, &m.Username, &m.FirstName, &m.LastName, &m.IsBot, &m.JoinedAt, &m.UpdatedAt)
	return &m, err
}

func queryGetMember(ctx context.Context, q querier, userID int64) (*model.Member, error) {
	m, err := scanMember(q.QueryRow(ctx, "SELECT "+memberColumns+" FROM members WHERE user_id = $1", userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("участник", strconv.FormatInt(userID, 10))
	}
	if err != nil {
		return nil, common.WrapStore("get member", err)
	}
	return m, nil
}

func queryGetMemberByUsername(ctx context.Context, q querier, username string) (*model.Member, error) {
	m, err := scanMember(q.QueryRow(ctx,
		"SELECT "+memberColumns+" FROM members WHERE LOWER(username) = LOWER($1)", username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("участник", "@"+username)
	}
	if err != nil {
		return nil, common.WrapStore("get member", err)
	}
	return m, nil
}

func queryListMembers(ctx context.Context, q querier) ([]*model.Member, error) {
	rows, err := q.Query(ctx, "SELECT "+memberColumns+" FROM members ORDER BY user_id")
	if err != nil {
		return nil, common.WrapStore("list members", err)
	}
	defer rows.Close()

	var out []*model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, common.WrapStore("scan member", err)
		}
		out = append(out, m)
	}
	return out, common.WrapStore("list members", rows.Err())
}
