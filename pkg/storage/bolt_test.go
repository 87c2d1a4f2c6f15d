package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStore_GetMissingReturnsDefault(t *testing.T) {
	s := openTestStore(t)

	v, err := s.Get("missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

func TestBoltStore_RoundTripsSupportedTypes(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	tests := []struct {
		name  string
		value interface{}
	}{
		{"nil", nil},
		{"bool true", true},
		{"bool false", false},
		{"int", 42},
		{"int64", int64(-7)},
		{"float", 3.25},
		{"string", "last_backup"},
		{"time", now},
		{"map", map[string]interface{}{"vmid": float64(101), "ok": true}},
		{"slice", []interface{}{"a", "b", "c"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, s.Set(tc.name, tc.value))
			got, err := s.Get(tc.name, nil)
			require.NoError(t, err)

			switch want := tc.value.(type) {
			case int:
				assert.Equal(t, int64(want), got)
			case time.Time:
				gotTime, ok := got.(time.Time)
				require.True(t, ok)
				assert.True(t, want.Equal(gotTime))
			default:
				assert.Equal(t, tc.value, got)
			}
		})
	}
}

// Regression guard for the bool/int dispatch order: a stored bool must
// decode back as bool, never as 0/1.
func TestBoltStore_BoolDoesNotDecodeAsInt(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("flag", true))
	got, err := s.Get("flag", nil)
	require.NoError(t, err)

	b, ok := got.(bool)
	require.True(t, ok, "expected bool, got %T", got)
	assert.True(t, b)
}

func TestBoltStore_SetRejectsUnsupportedType(t *testing.T) {
	s := openTestStore(t)

	err := s.Set("bad", make(chan int))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestBoltStore_DeleteAndExists(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("k1", "v1"))
	ok, err := s.Exists("k1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete("k1"))
	ok, err = s.Exists("k1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is a no-op, not an error.
	assert.NoError(t, s.Delete("k1"))
}

func TestBoltStore_GetKeysPrefix(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("service:web:last_backup", "2026-07-01T00:00:00Z"))
	require.NoError(t, s.Set("service:web:last_status", "success"))
	require.NoError(t, s.Set("service:db:last_backup", "2026-07-02T00:00:00Z"))
	require.NoError(t, s.Set("global:run_count", 3))

	keys, err := s.GetKeys("service:web:")
	require.NoError(t, err)
	assert.Equal(t, []string{"service:web:last_backup", "service:web:last_status"}, keys)

	all, err := s.GetKeys("")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestBoltStore_GetAll(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Set("b", "two"))

	all, err := s.GetAll()
	require.NoError(t, err)
	assert.Equal(t, int64(1), all["a"])
	assert.Equal(t, "two", all["b"])
}

func TestBoltStore_Clear(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Clear())

	ok, err := s.Exists("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBoltStore_SetOverwritesValue(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Set("k", "first"))
	first, err := s.Get("k", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", first)

	require.NoError(t, s.Set("k", "second"))
	second, err := s.Get("k", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", second)
}
