package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	c, err := load(env(map[string]string{"MONGODB_URI": "mongodb://localhost:27017/liars"}))
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "rooms", c.RoomsCollection)
	assert.Equal(t, "nats://localhost:4222", c.NatsURL)
	assert.Equal(t, 120, c.RateLimit)
	assert.Equal(t, 24*time.Hour, c.DeletedRoomTTL)
	assert.False(t, c.OptimisticWrites)
	assert.Empty(t, c.PostgresURL)
	assert.Empty(t, c.CORSOrigins)
}

func TestLoadOverrides(t *testing.T) {
	c, err := load(env(map[string]string{
		"MONGODB_URI":       "mongodb://localhost:27017/liars",
		"GAME_SERVICE_PORT": "9000",
		"RATE_LIMIT":        "30",
		"OPTIMISTIC_WRITES": "true",
		"DELETED_ROOM_TTL":  "90m",
		"CORS_ORIGINS":      "https://a.example, https://b.example,",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, 30, c.RateLimit)
	assert.True(t, c.OptimisticWrites)
	assert.Equal(t, 90*time.Minute, c.DeletedRoomTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	base := "mongodb://localhost:27017/liars"
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing mongo", map[string]string{}},
		{"rate limit", map[string]string{"MONGODB_URI": base, "RATE_LIMIT": "lots"}},
		{"zero rate limit", map[string]string{"MONGODB_URI": base, "RATE_LIMIT": "0"}},
		{"optimistic", map[string]string{"MONGODB_URI": base, "OPTIMISTIC_WRITES": "maybe"}},
		{"ttl", map[string]string{"MONGODB_URI": base, "DELETED_ROOM_TTL": "1 day"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(env(tt.env))
			assert.Error(t, err)
		})
	}
}
