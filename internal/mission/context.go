// Package mission holds the state of the running session: the world and one
// commander per side.
package mission

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/AIAI/extension/internal/commander"
	"github.com/AIAI/extension/internal/host"
	"github.com/AIAI/extension/pkg/core"
	"github.com/google/uuid"
)

// Session is one side's commander and the feed its queries read from
type Session struct {
	ID        uuid.UUID
	Side      core.Side
	Commander *commander.Commander
	Feed      *host.Feed
	Created   time.Time
}

// Context holds the current world and the sessions by side
type Context struct {
	mu       sync.RWMutex
	world    core.World
	sessions map[core.Side]*Session
	started  time.Time
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		world:    core.World{Name: "No world loaded"},
		sessions: make(map[core.Side]*Session),
		started:  time.Now(),
	}
}

// GetWorld returns the current world
func (mc *Context) GetWorld() core.World {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.world
}

// SetWorld sets the current world
func (mc *Context) SetWorld(world core.World) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.world = world
}

// Started is when the context was created
func (mc *Context) Started() time.Time {
	return mc.started
}

// Session returns the session of side
func (mc *Context) Session(side core.Side) (*Session, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	s, ok := mc.sessions[side]
	return s, ok
}

// AddSession registers s. A side may only be re-registered once its previous
// commander is Terminated.
func (mc *Context) AddSession(s *Session) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if prev, ok := mc.sessions[s.Side]; ok && prev.Commander.Phase() != core.PhaseTerminated {
		return fmt.Errorf("commander for %s already running (%s)", s.Side, prev.Commander.Phase())
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Created.IsZero() {
		s.Created = time.Now()
	}
	mc.sessions[s.Side] = s
	return nil
}

// Sessions returns all sessions in side order
func (mc *Context) Sessions() []*Session {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	out := make([]*Session, 0, len(mc.sessions))
	for _, s := range mc.sessions {
		out = append(out, s)
	}
	rank := make(map[core.Side]int, len(core.Sides))
	for i, side := range core.Sides {
		rank[side] = i
	}
	sort.Slice(out, func(i, j int) bool { return rank[out[i].Side] < rank[out[j].Side] })
	return out
}

// LogAttrs describes the session for every log record: the world and each
// commander's phase and tick. It never takes a commander's lock.
func (mc *Context) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("world", mc.GetWorld().Name)}
	for _, s := range mc.Sessions() {
		p := s.Commander.Progress()
		attrs = append(attrs, slog.Group(string(s.Side),
			slog.String("phase", string(p.Phase)),
			slog.Uint64("tick", p.Tick),
		))
	}
	return attrs
}
