package learned

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memStore struct {
	names  map[string]string
	writes int
	err    error
}

func (m *memStore) LearnedNames() map[string]string { return m.names }

func (m *memStore) SetLearnedNames(names map[string]string) error {
	if m.err != nil {
		return m.err
	}
	m.writes++
	m.names = names
	return nil
}

func TestCache_LookupRecord(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	c.Record("Aqua", "aqua_v2")

	assert.Equal(t, "aqua_v2", c.Lookup("Aqua"))
	assert.Equal(t, "Unknown", c.Lookup("Unknown"))
	assert.Equal(t, "Unknown", c.Lookup("Unknown"))
}

func TestCache_LastWriteWins(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	c.Record("Aqua", "aqua_v2")
	c.Record("Aqua", "aqua_v3")

	assert.Equal(t, "aqua_v3", c.Lookup("Aqua"))
	assert.Equal(t, 1, c.Len())
}

func TestCache_NeverMapsToSelf(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	c.Record("Aqua", "Aqua")
	assert.Zero(t, c.Len())

	c.Record("Aqua", "aqua_v2")
	c.Record("Aqua", "Aqua")
	assert.Zero(t, c.Len())
	assert.Equal(t, "Aqua", c.Lookup("Aqua"))
}

func TestCache_IgnoresEmpty(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	c.Record("", "x")
	c.Record("x", "")
	assert.Zero(t, c.Len())
}

func TestCache_SeededFromStore(t *testing.T) {
	store := &memStore{names: map[string]string{
		"Aqua":  "aqua_v2",
		"Same":  "Same",
		"Night": "Night (2)",
	}}

	c, err := New(store)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "Night (2)", c.Lookup("Night"))
	assert.Equal(t, []Entry{
		{Requested: "Aqua", Actual: "aqua_v2"},
		{Requested: "Night", Actual: "Night (2)"},
	}, c.Entries())
}

func TestCache_Flush(t *testing.T) {
	store := &memStore{}
	c, err := New(store)
	require.NoError(t, err)

	require.NoError(t, c.Flush())
	assert.Zero(t, store.writes, "clean cache must not write")

	c.Record("Aqua", "aqua_v2")
	require.NoError(t, c.Flush())
	assert.Equal(t, 1, store.writes)
	assert.Equal(t, map[string]string{"Aqua": "aqua_v2"}, store.names)

	require.NoError(t, c.Flush())
	assert.Equal(t, 1, store.writes)

	assert.True(t, c.Forget("Aqua"))
	assert.False(t, c.Forget("Aqua"))
	require.NoError(t, c.Flush())
	assert.Equal(t, 2, store.writes)
	assert.Empty(t, store.names)
}

func TestCache_FlushErrorKeepsDirty(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	c, err := New(store)
	require.NoError(t, err)

	c.Record("Aqua", "aqua_v2")
	assert.ErrorContains(t, c.Flush(), "disk full")

	store.err = nil
	require.NoError(t, c.Flush())
	assert.Equal(t, 1, store.writes)
}

func TestCache_Eviction(t *testing.T) {
	c, err := New(nil, WithSize(2))
	require.NoError(t, err)

	c.Record("a", "1")
	c.Record("b", "2")
	c.Record("c", "3")

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "a", c.Lookup("a"))
}

func TestCache_EvictionIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := &memStore{names: map[string]string{}}
	c, err := New(store, WithSize(2), WithLogger(zap.New(core)))
	require.NoError(t, err)

	c.Record("a", "1")
	c.Record("b", "2")
	c.Forget("b")
	c.Record("a", "a")
	assert.Zero(t, logs.Len())

	c.Record("b", "2")
	c.Record("c", "3")
	c.Record("d", "4")

	evicted := logs.FilterMessage("learned theme name evicted").All()
	require.Len(t, evicted, 1)
	assert.Equal(t, "b", evicted[0].ContextMap()["requested"])
	assert.Equal(t, "2", evicted[0].ContextMap()["actual"])

	require.NoError(t, c.Flush())
	assert.Equal(t, map[string]string{"c": "3", "d": "4"}, store.names)
}

func TestCache_InvalidSize(t *testing.T) {
	_, err := New(nil, WithSize(0))
	assert.Error(t, err)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c, err := New(&memStore{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Record("Aqua", "aqua_v2")
				_ = c.Lookup("Aqua")
				_ = c.Flush()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "aqua_v2", c.Lookup("Aqua"))
}
