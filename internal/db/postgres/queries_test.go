package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/model"
)

type unknownFilter struct{}

func (unknownFilter) MatchGrant(*model.Grant) bool { return true }
func (unknownFilter) MatchDebit(*model.Debit) bool { return true }

func TestBuildWhere(t *testing.T) {
	since := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   model.Filter
		debits   bool
		wantSQL  string
		wantArgs []any
	}{
		{name: "nil", filter: nil, wantSQL: ""},
		{name: "unbounded window", filter: model.ByWindow{}, wantSQL: ""},
		{
			name:     "receiver",
			filter:   model.ByUser{Role: model.RoleReceiver, User: 7},
			wantSQL:  " WHERE receiver = $1",
			wantArgs: []any{int64(7)},
		},
		{
			name: "combined",
			filter: model.All(
				model.ByUser{Role: model.RoleGiver, User: 3},
				model.ByWindow{Since: since},
				model.NotFrom{User: 0},
			),
			wantSQL:  " WHERE giver = $1 AND created_at >= $2 AND giver <> $3",
			wantArgs: []any{int64(3), since, int64(0)},
		},
		{
			name:     "owner on debits",
			filter:   model.All(model.ByUser{Role: model.RoleOwner, User: 9}, model.Unrefunded{}),
			debits:   true,
			wantSQL:  " WHERE user_id = $1 AND NOT refunded",
			wantArgs: []any{int64(9)},
		},
		{
			name:    "giver role on debits matches nothing",
			filter:  model.ByUser{Role: model.RoleGiver, User: 9},
			debits:  true,
			wantSQL: " WHERE FALSE",
		},
		{
			name:    "unrefunded ignored for grants",
			filter:  model.Unrefunded{},
			wantSQL: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildWhere(tt.filter, tt.debits)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildWhereUnknownFilter(t *testing.T) {
	_, _, err := buildWhere(unknownFilter{}, false)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestTableFor(t *testing.T) {
	table, err := tableFor(model.CollectionGolden)
	require.NoError(t, err)
	assert.Equal(t, "golden_grants", table)

	_, err = tableFor(model.Collection("grants; DROP TABLE debits"))
	assert.True(t, errors.Is(err, common.ErrValidation))
}
