package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	expiredBefore time.Time
	deleted       int64
	err           error
}

func (f *fakeTokens) StoreToken(context.Context, string, string, string, time.Time) error {
	return nil
}

func (f *fakeTokens) ConsumeToken(context.Context, string, string, string) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeTokens) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	f.expiredBefore = now
	return f.deleted, f.err
}

func TestPurgeExpiredTokens(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := &fakeTokens{deleted: 3}

	require.NoError(t, PurgeExpiredTokens(context.Background(), tokens, now))
	assert.Equal(t, now, tokens.expiredBefore)
}

func TestPurgeExpiredTokensError(t *testing.T) {
	tokens := &fakeTokens{err: errors.New("disk full")}
	assert.EqualError(t, PurgeExpiredTokens(context.Background(), tokens, time.Now()), "disk full")
}

func TestStartSchedulesCleanup(t *testing.T) {
	scheduler, err := Start(&fakeTokens{})
	require.NoError(t, err)
	defer scheduler.Stop()

	entries := scheduler.Entries()
	require.Len(t, entries, 1)
	assert.WithinDuration(t, time.Now().Add(time.Hour), entries[0].Next, time.Minute)
}
