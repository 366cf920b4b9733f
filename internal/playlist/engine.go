// Package playlist computes which track is selected; it never plays audio itself.
package playlist

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/MrSnakeDoc/pelican/internal/domain"
	"github.com/MrSnakeDoc/pelican/internal/logger"
	"github.com/MrSnakeDoc/pelican/internal/metrics"
)

// Selection is the outcome of a navigation call.
// OK is false when nothing happened (empty playlist, index out of range).
type Selection struct {
	Track domain.Track `json:"track"`
	Index int          `json:"index"`
	OK    bool         `json:"-"`
}

// State is a read-only snapshot of the engine.
type State struct {
	Tracks          []domain.Track `json:"tracks"`
	CurrentIndex    int            `json:"currentIndex"`
	Shuffled        bool           `json:"shuffled"`
	ShuffledOrder   []int          `json:"shuffledOrder,omitempty"`
	ShufflePosition int            `json:"shufflePosition"`
}

// Engine holds the playlist and its navigation state.
//
// Invariant, checked at every mutation: when shuffled and non-empty, order is a
// permutation of [0, len(tracks)) and order[pos] == current.
type Engine struct {
	mu       sync.Mutex
	rng      *rand.Rand
	logger   logger.Logger
	tracks   []domain.Track
	current  int
	shuffled bool
	order    []int
	pos      int
}

// New creates an empty engine. A nil rng uses a randomly seeded source.
func New(rng *rand.Rand, log logger.Logger) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{rng: rng, logger: log}
}

// SetPlaylist replaces the tracks wholesale and selects index 0.
func (e *Engine) SetPlaylist(tracks []domain.Track) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tracks = slices.Clone(tracks)
	e.current = 0
	e.order = nil
	e.pos = 0
	if e.shuffled && len(e.tracks) > 0 {
		e.reshuffleLocked()
	}
	metrics.PlaylistTracks.Set(float64(len(e.tracks)))

	e.logger.Debug("playlist replaced",
		logger.Int("tracks", len(e.tracks)),
		logger.Bool("shuffled", e.shuffled))
	return len(e.tracks)
}

// Next advances one step, wrapping at the end.
func (e *Engine) Next() Selection {
	return e.step(1)
}

// Prev goes back one step, wrapping at the start.
func (e *Engine) Prev() Selection {
	return e.step(-1)
}

func (e *Engine) step(delta int) Selection {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.tracks)
	if n == 0 {
		return Selection{}
	}

	if !e.shuffled {
		e.current = (e.current + delta + n) % n
		return e.selectionLocked()
	}

	if !e.orderValidLocked() {
		e.logger.Warn("shuffle order out of sync, regenerating",
			logger.Int("tracks", n),
			logger.Int("order", len(e.order)))
		e.reshuffleLocked()
	}
	e.pos = (e.pos + delta + len(e.order)) % len(e.order)
	e.current = e.order[e.pos]
	return e.selectionLocked()
}

// Select jumps to index. Out-of-range indexes are a no-op.
func (e *Engine) Select(index int) Selection {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.tracks) {
		return Selection{}
	}
	e.current = index

	if e.shuffled {
		if !e.orderValidLocked() {
			e.reshuffleLocked()
		}
		e.pos = e.positionOfLocked(index)
	}
	return e.selectionLocked()
}

// ToggleShuffle flips shuffle mode and returns the new mode.
// Enabling builds a fresh permutation anchored on the current track, so what is
// selected does not change; only the following Next/Prev order does.
// On an empty playlist only the flag flips: no permutation is built and no track
// is selected, so the mode carries over to the next SetPlaylist.
func (e *Engine) ToggleShuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.shuffled = !e.shuffled
	if e.shuffled && len(e.tracks) > 0 {
		e.reshuffleLocked()
	}
	if !e.shuffled {
		e.order = nil
		e.pos = 0
	}

	e.logger.Debug("shuffle toggled", logger.Bool("shuffled", e.shuffled))
	return e.shuffled
}

// Current returns the selected track without moving.
func (e *Engine) Current() Selection {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.tracks) == 0 {
		return Selection{}
	}
	return e.selectionLocked()
}

// Snapshot returns a copy of the full state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		Tracks:          slices.Clone(e.tracks),
		CurrentIndex:    e.current,
		Shuffled:        e.shuffled,
		ShuffledOrder:   slices.Clone(e.order),
		ShufflePosition: e.pos,
	}
}

func (e *Engine) selectionLocked() Selection {
	return Selection{Track: e.tracks[e.current], Index: e.current, OK: true}
}

// reshuffleLocked builds a new Fisher-Yates permutation and re-anchors pos on current.
func (e *Engine) reshuffleLocked() {
	n := len(e.tracks)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := e.rng.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	e.order = order
	e.pos = e.positionOfLocked(e.current)
}

// positionOfLocked returns where index sits in the permutation, 0 if absent.
func (e *Engine) positionOfLocked(index int) int {
	if p := slices.Index(e.order, index); p >= 0 {
		return p
	}
	e.logger.Warn("track missing from shuffle order, defaulting to first slot",
		logger.Int("index", index))
	return 0
}

// orderValidLocked reports whether order still matches the current track list.
func (e *Engine) orderValidLocked() bool {
	return len(e.order) == len(e.tracks) && len(e.order) > 0
}
