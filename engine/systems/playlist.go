package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/reel/engine/core"
	"github.com/spaghettifunk/reel/engine/math"
	"github.com/spaghettifunk/reel/engine/renderer/metadata"
)

var ErrEmptyPlaylist = errors.New("no playable script entries")

// Playlist decides which program plays and for how long.
type Playlist struct {
	entries []metadata.ScriptEntry
	current int
	elapsed float64
	frame   uint64
	paused  bool
	// Set whenever the current entry changes or restarts; cleared by TakeReset.
	resetRequired bool
}

func NewPlaylist(entries []metadata.ScriptEntry) *Playlist {
	return &Playlist{
		entries:       append([]metadata.ScriptEntry(nil), entries...),
		resetRequired: true,
	}
}

// SetScript replaces the entries. Durations are scaled by interval and entries whose
// program was not loaded are dropped.
func (p *Playlist) SetScript(entries []metadata.ScriptEntry, interval float64, loaded func(string) bool) error {
	kept := make([]metadata.ScriptEntry, 0, len(entries))
	for _, e := range entries {
		if loaded != nil && !loaded(e.Program) {
			core.LogWarn("Program '%s' is not loaded, dropping it from the script", e.Program)
			continue
		}
		kept = append(kept, metadata.ScriptEntry{Program: e.Program, Duration: e.Duration * interval})
	}
	if len(kept) == 0 {
		return fmt.Errorf("%w (%d entries given)", ErrEmptyPlaylist, len(entries))
	}
	p.entries = kept
	p.restart(0)
	return nil
}

func (p *Playlist) Len() int {
	return len(p.entries)
}

// Current returns the playing entry. The zero entry is returned for an empty playlist.
func (p *Playlist) Current() metadata.ScriptEntry {
	if len(p.entries) == 0 {
		return metadata.ScriptEntry{}
	}
	return p.entries[p.current]
}

func (p *Playlist) Index() int {
	return p.current
}

// Elapsed is the time spent on the current entry, in seconds.
func (p *Playlist) Elapsed() float64 {
	return p.elapsed
}

// Frame counts the frames rendered since the current entry started.
func (p *Playlist) Frame() uint64 {
	return p.frame
}

// NextFrame increments the frame counter once a frame was recorded.
func (p *Playlist) NextFrame() {
	p.frame++
}

func (p *Playlist) Paused() bool {
	return p.paused
}

func (p *Playlist) TogglePause() {
	p.paused = !p.paused
	if p.paused {
		core.LogInfo("Playback paused")
	} else {
		core.LogInfo("Playback resumed")
	}
}

// Advance accumulates dt and moves to the following entry once the current one ran for
// its whole duration. The time past the duration is kept. Returns true when the entry
// changed.
func (p *Playlist) Advance(dt float64) bool {
	if p.paused || len(p.entries) == 0 {
		return false
	}
	p.elapsed += dt

	d := p.entries[p.current].Duration
	if d <= 0 || p.elapsed <= d {
		return false
	}
	overshoot := p.elapsed - d
	p.restart((p.current + 1) % len(p.entries))
	// A single long stall never skips more than one entry.
	if next := p.entries[p.current].Duration; next > 0 {
		overshoot = math.Clamp(overshoot, 0, next)
	}
	p.elapsed = overshoot
	return true
}

func (p *Playlist) Next() {
	if len(p.entries) == 0 {
		return
	}
	p.restart((p.current + 1) % len(p.entries))
}

func (p *Playlist) Previous() {
	if len(p.entries) == 0 {
		return
	}
	p.restart((p.current + len(p.entries) - 1) % len(p.entries))
}

// Restart plays the current entry again from the beginning.
func (p *Playlist) Restart() {
	p.restart(p.current)
}

// TakeReset reports whether the entry changed or restarted since the last call.
func (p *Playlist) TakeReset() bool {
	r := p.resetRequired
	p.resetRequired = false
	return r
}

// Crossfade is the fade factor of the current entry: ramps up over window seconds after
// the start and down over window seconds before the end. Entries without a duration
// never fade.
func (p *Playlist) Crossfade(window float64) float32 {
	if len(p.entries) == 0 {
		return 0
	}
	return CrossfadeFactor(p.elapsed, p.entries[p.current].Duration, window)
}

func CrossfadeFactor(elapsed, duration, window float64) float32 {
	if duration <= 0 || window <= 0 {
		return 1
	}
	edge := elapsed
	if rest := duration - elapsed; rest < edge {
		edge = rest
	}
	return float32(math.Clamp(edge/window, 0, 1))
}

func (p *Playlist) restart(index int) {
	p.current = index
	p.elapsed = 0
	p.frame = 0
	p.resetRequired = true
	if len(p.entries) > 0 {
		core.LogInfo("Playing '%s'", p.entries[index].Program)
	}
}
