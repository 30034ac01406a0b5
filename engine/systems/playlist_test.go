package systems

import (
	"testing"

	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoEntries() []metadata.ScriptEntry {
	return []metadata.ScriptEntry{
		{Program: "a", Duration: 2},
		{Program: "b", Duration: 3},
	}
}

func TestAdvanceKeepsOvershoot(t *testing.T) {
	p := NewPlaylist(twoEntries())
	p.TakeReset()

	assert.False(t, p.Advance(1.0))
	assert.Equal(t, "a", p.Current().Program)

	// Exactly at the duration does not switch yet.
	assert.False(t, p.Advance(1.0))
	assert.Equal(t, "a", p.Current().Program)

	assert.True(t, p.Advance(0.1))
	assert.Equal(t, "b", p.Current().Program)
	assert.InDelta(t, 0.1, p.Elapsed(), 1e-9)
	assert.True(t, p.TakeReset())
	assert.False(t, p.TakeReset())
}

func TestAdvanceFromZero(t *testing.T) {
	p := NewPlaylist(twoEntries())
	assert.True(t, p.Advance(2.1))
	assert.Equal(t, "b", p.Current().Program)
	assert.InDelta(t, 0.1, p.Elapsed(), 1e-9)
}

func TestAdvanceWrapsAndResetsFrame(t *testing.T) {
	p := NewPlaylist(twoEntries())
	p.Next()
	p.NextFrame()
	p.NextFrame()
	assert.Equal(t, uint64(2), p.Frame())

	assert.True(t, p.Advance(3.5))
	assert.Equal(t, "a", p.Current().Program)
	assert.Equal(t, 0, p.Index())
	assert.Equal(t, uint64(0), p.Frame())
}

func TestAdvanceNeverSkipsAnEntry(t *testing.T) {
	p := NewPlaylist(twoEntries())
	assert.True(t, p.Advance(100))
	assert.Equal(t, "b", p.Current().Program)
	assert.InDelta(t, 3.0, p.Elapsed(), 1e-9)
}

func TestUnboundedEntryNeverAdvances(t *testing.T) {
	p := NewPlaylist([]metadata.ScriptEntry{{Program: "solo"}})
	assert.False(t, p.Advance(1e6))
	assert.Equal(t, "solo", p.Current().Program)
	assert.Equal(t, float32(1), p.Crossfade(0.5))
}

func TestPauseStopsTime(t *testing.T) {
	p := NewPlaylist(twoEntries())
	p.TogglePause()
	assert.True(t, p.Paused())
	assert.False(t, p.Advance(10))
	assert.Zero(t, p.Elapsed())

	p.TogglePause()
	p.Advance(0.5)
	assert.InDelta(t, 0.5, p.Elapsed(), 1e-9)
}

func TestNextPreviousWrap(t *testing.T) {
	p := NewPlaylist(twoEntries())
	p.Advance(1.5)

	p.Previous()
	assert.Equal(t, "b", p.Current().Program)
	assert.Zero(t, p.Elapsed())

	p.Next()
	assert.Equal(t, "a", p.Current().Program)
	p.Next()
	assert.Equal(t, "b", p.Current().Program)
}

func TestCrossfadeFactor(t *testing.T) {
	assert.Equal(t, float32(0), CrossfadeFactor(0, 2, 0.5))
	assert.InDelta(t, 0.5, CrossfadeFactor(0.25, 2, 0.5), 1e-6)
	assert.Equal(t, float32(1), CrossfadeFactor(1, 2, 0.5))
	assert.InDelta(t, 0.2, CrossfadeFactor(1.9, 2, 0.5), 1e-6)
	assert.Equal(t, float32(0), CrossfadeFactor(2.5, 2, 0.5))
	assert.Equal(t, float32(1), CrossfadeFactor(5, 0, 0.5))
	assert.Equal(t, float32(1), CrossfadeFactor(0, 2, 0))
}

func TestSetScriptScalesAndDrops(t *testing.T) {
	p := NewPlaylist(nil)
	err := p.SetScript([]metadata.ScriptEntry{
		{Program: "a", Duration: 2},
		{Program: "missing", Duration: 1},
		{Program: "b", Duration: 0.5},
	}, 10, func(name string) bool { return name != "missing" })
	require.NoError(t, err)

	require.Equal(t, 2, p.Len())
	assert.Equal(t, metadata.ScriptEntry{Program: "a", Duration: 20}, p.Current())
	p.Next()
	assert.Equal(t, metadata.ScriptEntry{Program: "b", Duration: 5}, p.Current())
}

func TestSetScriptNothingLoaded(t *testing.T) {
	p := NewPlaylist(nil)
	err := p.SetScript([]metadata.ScriptEntry{{Program: "a", Duration: 1}}, 1, func(string) bool { return false })
	assert.ErrorIs(t, err, ErrEmptyPlaylist)
}

func TestEmptyPlaylistIsInert(t *testing.T) {
	p := NewPlaylist(nil)
	assert.False(t, p.Advance(1))
	p.Next()
	p.Previous()
	assert.Equal(t, metadata.ScriptEntry{}, p.Current())
	assert.Equal(t, float32(0), p.Crossfade(0.5))
}
