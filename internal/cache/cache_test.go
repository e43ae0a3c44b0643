package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestStoreExpiry(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := New[int](time.Minute, WithClock[int](c.now))

	s.Set("portfolio:alice", 42)
	v, ok := s.Get("portfolio:alice")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	c.t = c.t.Add(59 * time.Second)
	_, ok = s.Get("portfolio:alice")
	assert.True(t, ok)

	c.t = c.t.Add(time.Second)
	_, ok = s.Get("portfolio:alice")
	assert.False(t, ok, "expires after exactly one TTL")
	assert.Equal(t, 0, s.Len(), "expired entry is dropped on read")
}

func TestStoreInvalidate(t *testing.T) {
	s := New[string](0)
	assert.Equal(t, DefaultTTLSeconds*time.Second, s.TTL())

	s.Set("portfolio:alice", "a")
	s.Set("goals:alice", "b")
	s.Set("portfolio:bob", "c")

	s.Invalidate("goals:alice")
	_, ok := s.Get("goals:alice")
	assert.False(t, ok)

	assert.Equal(t, 2, s.InvalidatePrefix("portfolio:"))
	assert.Equal(t, 0, s.Len())
}

func TestStoreSetIfCurrent(t *testing.T) {
	s := New[int](time.Minute)

	gen := s.Generation("portfolio:alice")
	s.Invalidate("portfolio:alice")
	assert.False(t, s.SetIfCurrent("portfolio:alice", 1, gen), "stale value is refused")
	_, ok := s.Get("portfolio:alice")
	assert.False(t, ok)

	gen = s.Generation("portfolio:alice")
	assert.True(t, s.SetIfCurrent("portfolio:alice", 2, gen))
	v, ok := s.Get("portfolio:alice")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	gen = s.Generation("portfolio:bob")
	s.InvalidatePrefix("portfolio:")
	assert.False(t, s.SetIfCurrent("portfolio:bob", 3, gen), "prefix invalidation bumps pending keys")
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr error
	}{
		{in: "300", want: 5 * time.Minute},
		{in: "10m", want: 10 * time.Minute},
		{in: "1h", want: time.Hour},
		{in: "59", wantErr: ErrInvalidTTL},
		{in: "2h", wantErr: ErrInvalidTTL},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTTL(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseTTL("soon")
	assert.Error(t, err)
}

func TestTTLFromEnv(t *testing.T) {
	t.Setenv(EnvTTLSeconds, "")
	assert.Equal(t, 300*time.Second, TTLFromEnv())

	t.Setenv(EnvTTLSeconds, "120")
	assert.Equal(t, 120*time.Second, TTLFromEnv())

	t.Setenv(EnvTTLSeconds, "5")
	assert.Equal(t, 300*time.Second, TTLFromEnv(), "out of range falls back to the default")
}
