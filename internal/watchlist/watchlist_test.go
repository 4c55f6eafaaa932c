package watchlist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNormalizesAndDedupes(t *testing.T) {
	var w Watchlist
	w.Add(" aapl ")
	w.Add("AAPL")
	w.Add("msft")
	w.Add("")

	assert.Equal(t, []string{"AAPL", "MSFT"}, w.Symbols)
	assert.False(t, w.UpdatedAt.IsZero())
}

func TestRemove(t *testing.T) {
	w := Watchlist{Symbols: []string{"AAPL", "MSFT", "SPY"}}
	w.Remove("msft")
	assert.Equal(t, []string{"AAPL", "SPY"}, w.Symbols)

	before := w.UpdatedAt
	w.Remove("NOPE")
	assert.Equal(t, []string{"AAPL", "SPY"}, w.Symbols)
	assert.Equal(t, before, w.UpdatedAt, "no-op removal leaves the stamp alone")
}

func TestExtend(t *testing.T) {
	var w Watchlist
	w.Extend([]string{"aapl", "msft", "AAPL"})
	assert.Equal(t, []string{"AAPL", "MSFT"}, w.Symbols)
}

func TestLoadMissingFileIsEmptyList(t *testing.T) {
	w, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, w.Symbols)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "watchlist.json")
	w := &Watchlist{Symbols: []string{"AAPL", "600519.SS"}, UpdatedAt: time.Now().UTC().Truncate(time.Second)}

	require.NoError(t, Save(path, w))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, w.Symbols, got.Symbols)
	assert.True(t, w.UpdatedAt.Equal(got.UpdatedAt))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.json")
	require.NoError(t, Save(path, &Watchlist{Symbols: []string{"AAPL"}}))

	w, err := Watch(path)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, []string{"AAPL"}, w.Snapshot())

	require.NoError(t, Save(path, &Watchlist{Symbols: []string{"AAPL", "MSFT"}}))

	assert.Eventually(t, func() bool {
		return len(w.Snapshot()) == 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherPublishesUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.json")
	require.NoError(t, Save(path, &Watchlist{Symbols: []string{"AAPL"}}))

	w, err := Watch(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, Save(path, &Watchlist{Symbols: []string{"AAPL", "MSFT"}}))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case symbols := <-w.Updates():
			if len(symbols) == 2 {
				assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
				return
			}
		case <-deadline:
			t.Fatal("no update delivered after rewrite")
		}
	}
}
