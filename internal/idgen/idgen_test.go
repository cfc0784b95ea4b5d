package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebitIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id, err := Debit()
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(id, DebitPrefix))
		assert.Len(t, id, len(DebitPrefix)+Length)
		for _, r := range strings.TrimPrefix(id, DebitPrefix) {
			assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected rune %q", r)
		}
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
