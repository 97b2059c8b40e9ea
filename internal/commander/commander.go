// Package commander drives one side's AI: roster sync, squad planning, zone
// assignment and order dispatch, one tick at a time.
package commander

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AIAI/extension/internal/diagnostics"
	"github.com/AIAI/extension/internal/orders"
	"github.com/AIAI/extension/internal/queue"
	"github.com/AIAI/extension/internal/roster"
	"github.com/AIAI/extension/internal/squad"
	"github.com/AIAI/extension/internal/terrain"
	"github.com/AIAI/extension/pkg/core"
)

// Tuning holds the numeric knobs read from the extension config
type Tuning struct {
	TerrainRefreshTicks    int
	MaxInitRetries         int
	RosterFailureThreshold int
	AreaMargin             float64
	SquadSize              int
	ChurnThreshold         float64
}

// DefaultTuning returns the built-in defaults
func DefaultTuning() Tuning {
	return Tuning{
		TerrainRefreshTicks:    terrain.DefaultRefreshInterval,
		MaxInitRetries:         5,
		RosterFailureThreshold: 10,
		AreaMargin:             500,
		SquadSize:              squad.DefaultSize,
		ChurnThreshold:         orders.DefaultChurnThreshold,
	}
}

func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.TerrainRefreshTicks <= 0 {
		t.TerrainRefreshTicks = d.TerrainRefreshTicks
	}
	if t.MaxInitRetries <= 0 {
		t.MaxInitRetries = d.MaxInitRetries
	}
	if t.RosterFailureThreshold <= 0 {
		t.RosterFailureThreshold = d.RosterFailureThreshold
	}
	if t.AreaMargin <= 0 {
		t.AreaMargin = d.AreaMargin
	}
	if t.SquadSize <= 0 {
		t.SquadSize = d.SquadSize
	}
	if t.ChurnThreshold <= 0 {
		t.ChurnThreshold = d.ChurnThreshold
	}
	return t
}

// OrderSink delivers orders to the host. Delivery is fire-and-forget; failures the
// host notices later come back through ReportDispatchFailure.
type OrderSink interface {
	Dispatch(side core.Side, orders []core.Order) error
}

// OrderSinkFunc adapts a function to the OrderSink interface
type OrderSinkFunc func(side core.Side, orders []core.Order) error

func (f OrderSinkFunc) Dispatch(side core.Side, orders []core.Order) error { return f(side, orders) }

// Dependencies are the host collaborators of a commander
type Dependencies struct {
	Units       roster.Query
	Terrain     terrain.Query
	Orders      OrderSink
	Diagnostics diagnostics.Sink
	Tuning      Tuning
}

// Option configures a Commander
type Option func(*Commander)

// WithScorer replaces the terrain scorer
func WithScorer(s terrain.Scorer) Option {
	return func(c *Commander) { c.scorer = s }
}

// WithClock replaces time.Now for event timestamps and tick durations
func WithClock(now func() time.Time) Option {
	return func(c *Commander) {
		if now != nil {
			c.now = now
		}
	}
}

type request int

const (
	requestSuspend request = iota
	requestResume
	requestTerminate
)

func (r request) String() string {
	switch r {
	case requestSuspend:
		return "suspend"
	case requestResume:
		return "resume"
	}
	return "terminate"
}

// Progress is the phase and tick count, published after every change
type Progress struct {
	Phase core.Phase
	Tick  uint64
}

// Commander coordinates one side. All exported methods are safe for concurrent use;
// the tick pipeline itself runs under the commander's lock.
type Commander struct {
	mu       sync.Mutex
	progress atomic.Pointer[Progress]

	deps   Dependencies
	tuning Tuning
	scorer terrain.Scorer
	now    func() time.Time

	cfg   core.CommanderConfig
	state core.CommanderState

	analyzer *terrain.Analyzer
	registry *roster.Registry
	planner  *squad.Planner
	assigner *orders.Assigner
	book     *orders.Book

	squads    []core.Squad
	overrides map[int]core.Order

	pending  []request
	failures *queue.Queue[int]

	fingerprint    uint64
	assigned       bool
	overridesDirty bool
	forceReplan    bool
}

// New creates an Uninitialized commander
func New(deps Dependencies, opts ...Option) *Commander {
	if deps.Diagnostics == nil {
		deps.Diagnostics = diagnostics.Nop{}
	}
	c := &Commander{
		deps:      deps,
		tuning:    deps.Tuning.withDefaults(),
		now:       time.Now,
		state:     core.CommanderState{Phase: core.PhaseUninitialized},
		overrides: make(map[int]core.Order),
		failures:  queue.New[int](),
		book:      orders.NewBook(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.publish()

	topts := []terrain.Option{terrain.WithRefreshInterval(c.tuning.TerrainRefreshTicks)}
	if c.scorer != nil {
		topts = append(topts, terrain.WithScorer(c.scorer))
	}
	c.analyzer = terrain.NewAnalyzer(topts...)
	c.planner = squad.NewPlanner(c.tuning.SquadSize)
	return c
}

// InitCommander validates cfg and moves to Initializing. An invalid config leaves the
// commander Uninitialized and is reported once as a fatal diagnostics event.
func (c *Commander) InitCommander(cfg core.CommanderConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != core.PhaseUninitialized {
		return fmt.Errorf("commander already %s", c.state.Phase)
	}
	if err := cfg.Validate(); err != nil {
		c.emit(diagnostics.Event{
			Kind:    diagnostics.KindError,
			Side:    cfg.Side,
			Message: "invalid commander config",
			Err:     err,
			Fatal:   true,
		})
		return err
	}

	c.cfg = cfg
	c.registry = roster.NewRegistry(cfg.Side)
	c.assigner = orders.NewAssigner(c.tuning.ChurnThreshold, c.registry.Centroid)
	c.setPhase(core.PhaseInitializing, "commander initialized")
	return nil
}

// Suspend requests a pause at the next tick boundary
func (c *Commander) Suspend() error { return c.request(requestSuspend) }

// Resume requests the end of a pause at the next tick boundary
func (c *Commander) Resume() error { return c.request(requestResume) }

// Terminate requests teardown at the next tick boundary. An Uninitialized commander
// has nothing in flight and terminates immediately.
func (c *Commander) Terminate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == core.PhaseUninitialized {
		c.terminate("terminated before initialization", nil)
		return nil
	}
	return c.requestLocked(requestTerminate)
}

func (c *Commander) request(r request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestLocked(r)
}

func (c *Commander) requestLocked(r request) error {
	if c.state.Phase == core.PhaseTerminated {
		return core.ErrTerminated
	}
	c.pending = append(c.pending, r)
	return nil
}

// ReportDispatchFailure marks a squad's order as not applied by the host. The squad is
// reassigned and its order re-dispatched on the next Active tick.
func (c *Commander) ReportDispatchFailure(squadID int) {
	c.failures.Push(squadID)
}

// Phase returns the lifecycle phase
func (c *Commander) Phase() core.Phase {
	return c.Progress().Phase
}

// Progress returns the last published phase and tick without taking the commander's
// lock, so log handlers may call it while a tick is emitting events.
func (c *Commander) Progress() Progress {
	return *c.progress.Load()
}

func (c *Commander) publish() {
	c.progress.Store(&Progress{Phase: c.state.Phase, Tick: c.state.Tick})
}

// State returns a copy of the runtime state
func (c *Commander) State() core.CommanderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GetAvailableUnits returns copies of the Available units
func (c *Commander) GetAvailableUnits() []core.Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registry == nil {
		return []core.Unit{}
	}
	return c.registry.Available()
}

// Squads returns copies of the current squads with their orders
func (c *Commander) Squads() []core.Squad {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.squadsCopy()
}

// Orders returns the orders in force sorted by squad ID
func (c *Commander) Orders() []core.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.book.All()
}

// Zones returns a copy of the current zone set
func (c *Commander) Zones() []core.TacticalZone {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analyzer.Zones()
}

// Snapshot returns a deep copy of the commander
func (c *Commander) Snapshot() core.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	units := []core.Unit{}
	if c.registry != nil {
		units = c.registry.Units()
	}
	return core.Snapshot{
		Config:  c.cfg,
		State:   c.state,
		Units:   units,
		Squads:  c.squadsCopy(),
		Zones:   c.analyzer.Zones(),
		Orders:  c.book.All(),
		TakenAt: c.now(),
	}
}

func (c *Commander) squadsCopy() []core.Squad {
	out := make([]core.Squad, len(c.squads))
	for i, s := range c.squads {
		out[i] = s.Clone()
	}
	return out
}

func (c *Commander) setPhase(p core.Phase, msg string) {
	from := c.state.Phase
	c.state.Phase = p
	c.publish()
	c.emit(diagnostics.Event{
		Kind:    diagnostics.KindLifecycle,
		Message: msg,
		Fields:  map[string]any{"from": string(from), "to": string(p)},
	})
}

// terminate releases planning state and enters the terminal phase. A non-nil err is
// reported once as a fatal error.
func (c *Commander) terminate(msg string, err error) {
	if c.state.Phase == core.PhaseTerminated {
		return
	}
	if err != nil {
		c.state.ErrorCount++
		c.state.TerminationReason = err.Error()
		c.emit(diagnostics.Event{
			Kind:    diagnostics.KindError,
			Message: msg,
			Err:     err,
			Fatal:   true,
		})
	} else {
		c.state.TerminationReason = msg
	}
	c.squads = nil
	c.overrides = make(map[int]core.Order)
	c.book = orders.NewBook()
	c.pending = nil
	c.failures.Clear()
	c.setPhase(core.PhaseTerminated, msg)
}

func (c *Commander) emit(e diagnostics.Event) {
	if e.Side == "" {
		e.Side = c.cfg.Side
	}
	e.Tick = c.state.Tick
	if e.Time.IsZero() {
		e.Time = c.now()
	}
	c.deps.Diagnostics.Emit(e)
}

// emitDecision only reaches the sink in debug mode
func (c *Commander) emitDecision(msg string, fields map[string]any) {
	if !c.cfg.DebugMode {
		return
	}
	c.emit(diagnostics.Event{Kind: diagnostics.KindDecision, Message: msg, Fields: fields})
}

func (c *Commander) emitError(msg string, err error, fields map[string]any) {
	c.state.ErrorCount++
	c.emit(diagnostics.Event{Kind: diagnostics.KindError, Message: msg, Err: err, Fields: fields})
}
