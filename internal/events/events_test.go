package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, string, any) error {
	f.calls++
	return errors.New("bus down")
}

func (f *failingPublisher) Close() error { return nil }

func TestNewWithoutURLIsNoop(t *testing.T) {
	p, err := New("")
	require.NoError(t, err)
	_, ok := p.(*NoopPublisher)
	assert.True(t, ok)
	assert.NoError(t, p.Publish(context.Background(), TopicGrantRecorded, GrantRecorded{}))
	assert.NoError(t, p.Close())
}

func TestPublishBestEffortSwallowsErrors(t *testing.T) {
	f := &failingPublisher{}
	PublishBestEffort(context.Background(), f, TopicDebitRecorded, DebitRecorded{})
	assert.Equal(t, 1, f.calls)

	PublishBestEffort(context.Background(), nil, TopicDebitRecorded, DebitRecorded{})
}
