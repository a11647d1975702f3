// Package cascade implements dependent selection chains: a list of levels
// where the options of each level are fetched from the id selected in the
// level above (country -> department -> municipality, site -> block ->
// space, and so on).
package cascade

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrLevelOutOfRange is returned for a level index outside the chain.
	ErrLevelOutOfRange = errors.New("cascade level out of range")
	// ErrParentNotSelected is returned when selecting in a disabled level.
	ErrParentNotSelected = errors.New("parent level has no selection")
	// ErrUnknownOption is returned when the id is not among the level's options.
	ErrUnknownOption = errors.New("option not available for this level")
	// ErrSuperseded is returned when a newer selection replaced the one whose
	// options were being fetched. The chain state reflects the newer selection.
	ErrSuperseded = errors.New("selection superseded by a newer one")
)

// Option is one selectable entry.
type Option struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// FetchFunc loads the options of a level for the given parent id. The first
// level is fetched with parentID 0.
type FetchFunc func(ctx context.Context, parentID int64) ([]Option, error)

// Level configures one step of a chain.
type Level struct {
	Name             string
	Fetch            FetchFunc
	AutoSelectSingle bool
}

// StalePolicy decides what happens to options that arrive for a parent
// selection that has since changed.
type StalePolicy int

const (
	// DiscardStale drops late responses using per-level generation numbers.
	DiscardStale StalePolicy = iota
	// ApplyStale applies responses whenever they arrive, matching the
	// behaviour of the browser forms this replaces.
	ApplyStale
)

// ParseStalePolicy maps "discard" / "apply" to a policy.
func ParseStalePolicy(s string) (StalePolicy, error) {
	switch s {
	case "", "discard":
		return DiscardStale, nil
	case "apply":
		return ApplyStale, nil
	}
	return DiscardStale, fmt.Errorf("unknown stale policy %q", s)
}

// FetchError reports a failed options fetch for one level.
type FetchError struct {
	Level string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Level, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type levelState struct {
	selected int64
	options  []Option
	loaded   bool
	gen      uint64
}

// Chain holds the selection state of one chain. It is safe for concurrent
// use; fetches run without holding the lock.
type Chain struct {
	name   string
	levels []Level
	policy StalePolicy

	mu    sync.Mutex
	state []levelState
}

// NewChain creates a chain over levels.
func NewChain(name string, levels []Level, policy StalePolicy) *Chain {
	return &Chain{
		name:   name,
		levels: levels,
		policy: policy,
		state:  make([]levelState, len(levels)),
	}
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return c.name
}

// Len returns the number of levels.
func (c *Chain) Len() int {
	return len(c.levels)
}

// LevelIndex returns the index of the named level.
func (c *Chain) LevelIndex(name string) (int, bool) {
	for i, l := range c.levels {
		if l.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Load fetches the options of the first level.
func (c *Chain) Load(ctx context.Context) error {
	if len(c.levels) == 0 {
		return nil
	}
	c.mu.Lock()
	gen := c.state[0].gen
	c.mu.Unlock()

	opts, err := c.levels[0].Fetch(ctx, 0)
	_, _, err = c.finish(0, gen, opts, err)
	return err
}

// Select stores id as the selection of level and clears every level below
// it. When a level below exists its options are fetched for id; a single
// option is selected automatically on levels that ask for it, and the walk
// continues downwards. An id of 0 clears the level.
func (c *Chain) Select(ctx context.Context, level int, id int64) error {
	for {
		child, gen, err := c.begin(level, id)
		if err != nil || child < 0 {
			return err
		}

		opts, fetchErr := c.levels[child].Fetch(ctx, id)

		next, nextID, err := c.finish(child, gen, opts, fetchErr)
		if err != nil || !next {
			return err
		}
		level, id = child, nextID
	}
}

// Clear drops every selection. The first level keeps its options.
func (c *Chain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.state) == 0 {
		return
	}
	c.state[0].selected = 0
	c.resetBelow(0)
}

// begin records the selection and returns the child level to fetch, or -1
// when nothing needs fetching.
func (c *Chain) begin(level int, id int64) (int, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if level < 0 || level >= len(c.levels) {
		return -1, 0, ErrLevelOutOfRange
	}
	if level > 0 && c.state[level-1].selected == 0 {
		return -1, 0, ErrParentNotSelected
	}
	st := &c.state[level]
	if id != 0 && st.loaded && !containsOption(st.options, id) {
		return -1, 0, ErrUnknownOption
	}

	st.selected = id
	c.resetBelow(level)

	child := level + 1
	if id == 0 || child >= len(c.levels) {
		return -1, 0, nil
	}
	return child, c.state[child].gen, nil
}

// finish stores fetched options for level. It reports whether the walk
// should continue with an automatic selection.
func (c *Chain) finish(level int, gen uint64, opts []Option, fetchErr error) (bool, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := &c.state[level]
	if c.policy == DiscardStale && st.gen != gen {
		return false, 0, ErrSuperseded
	}

	if fetchErr != nil {
		st.options = []Option{}
		st.loaded = true
		return false, 0, &FetchError{Level: c.levels[level].Name, Err: fetchErr}
	}

	if opts == nil {
		opts = []Option{}
	}
	st.options = opts
	st.loaded = true

	if len(opts) == 1 && c.levels[level].AutoSelectSingle {
		return true, opts[0].ID, nil
	}
	return false, 0, nil
}

// resetBelow clears selections and options of every level after level and
// invalidates their in-flight fetches. Caller holds mu.
func (c *Chain) resetBelow(level int) {
	for i := level + 1; i < len(c.state); i++ {
		c.state[i] = levelState{gen: c.state[i].gen + 1}
	}
}

func containsOption(opts []Option, id int64) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}

// LevelSnapshot is the visible state of one level.
type LevelSnapshot struct {
	Name     string   `json:"name"`
	Selected int64    `json:"selected,omitempty"`
	Options  []Option `json:"options"`
	Loaded   bool     `json:"loaded"`
	// Enabled is false while the parent level has no selection.
	Enabled bool `json:"enabled"`
}

// Snapshot returns a copy of the chain state.
func (c *Chain) Snapshot() []LevelSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LevelSnapshot, len(c.levels))
	for i, l := range c.levels {
		st := c.state[i]
		opts := make([]Option, len(st.options))
		copy(opts, st.options)
		out[i] = LevelSnapshot{
			Name:     l.Name,
			Selected: st.selected,
			Options:  opts,
			Loaded:   st.loaded,
			Enabled:  i == 0 || c.state[i-1].selected != 0,
		}
	}
	return out
}

// Selected returns the selected id of level, or 0.
func (c *Chain) Selected(level int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if level < 0 || level >= len(c.state) {
		return 0
	}
	return c.state[level].selected
}
