// Package handlers registers the callExtension commands that drive the commanders.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AIAI/extension/internal/commander"
	"github.com/AIAI/extension/internal/diagnostics"
	"github.com/AIAI/extension/internal/dispatcher"
	"github.com/AIAI/extension/internal/host"
	"github.com/AIAI/extension/internal/influx"
	"github.com/AIAI/extension/internal/logging"
	"github.com/AIAI/extension/internal/mission"
	"github.com/AIAI/extension/internal/parser"
	"github.com/AIAI/extension/internal/storage"
	"github.com/AIAI/extension/internal/util"
	"github.com/AIAI/extension/pkg/core"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Parser      *parser.Parser
	Mission     *mission.Context
	Orders      commander.OrderSink
	Diagnostics diagnostics.Sink
	Tuning      commander.Tuning
	Storage     storage.Backend         // optional, records dispatched orders
	Metrics     diagnostics.PointWriter // optional, receives :METRIC: points
	History     *diagnostics.Recorder   // optional, served by :DIAGNOSTICS:
	Options     []commander.Option
}

// Service provides handler methods for the commander commands
type Service struct {
	deps Dependencies
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	if deps.Mission == nil {
		deps.Mission = mission.NewContext()
	}
	if deps.Diagnostics == nil {
		deps.Diagnostics = diagnostics.Nop{}
	}
	return &Service{deps: deps}
}

// Mission returns the session context
func (s *Service) Mission() *mission.Context {
	return s.deps.Mission
}

// RegisterHandlers registers all commander commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(":WORLD:", s.handleWorld, dispatcher.Logged())

	// Lifecycle - sync, SQF reads the resulting phase
	d.Register(":COMMANDER:INIT:", s.handleCommanderInit, dispatcher.Logged())
	d.Register(":COMMANDER:TICK:", s.handleTick)
	d.Register(":COMMANDER:SUSPEND:", s.handleSuspend, dispatcher.Logged())
	d.Register(":COMMANDER:RESUME:", s.handleResume, dispatcher.Logged())
	d.Register(":COMMANDER:TERMINATE:", s.handleTerminate, dispatcher.Logged())
	d.Register(":COMMANDER:STATUS:", s.handleStatus)

	// Host data - sync so the next tick sees it
	d.Register(":ROSTER:UPDATE:", s.handleRosterUpdate)
	d.Register(":ROSTER:FAILED:", s.handleRosterFailed, dispatcher.Logged())
	d.Register(":TERRAIN:UPDATE:", s.handleTerrainUpdate, dispatcher.Logged())
	d.Register(":TERRAIN:UNAVAILABLE:", s.handleTerrainUnavailable, dispatcher.Logged())

	// Orders
	d.Register(":ORDERS:SET:", s.handleOrdersSet, dispatcher.Logged())
	d.Register(":ORDERS:CLEAR:", s.handleOrdersClear, dispatcher.Logged())
	d.Register(":ORDERS:FAILED:", s.handleOrdersFailed, dispatcher.Logged())

	// Queries
	d.Register(":UNITS:AVAILABLE:", s.handleUnitsAvailable)
	d.Register(":SQUADS:", s.handleSquads)
	d.Register(":DIAGNOSTICS:", s.handleDiagnostics)

	// Fire-and-forget telemetry - buffered
	d.Register(":METRIC:", s.handleMetric, dispatcher.Buffered(1000))
	d.Register(":LOG:", s.handleLog, dispatcher.Buffered(1000), dispatcher.Blocking())
}

func (s *Service) session(data []string) (*mission.Session, error) {
	side, err := s.deps.Parser.ParseSide(data)
	if err != nil {
		return nil, err
	}
	return s.sessionFor(side)
}

func (s *Service) sessionFor(side core.Side) (*mission.Session, error) {
	session, ok := s.deps.Mission.Session(side)
	if !ok {
		return nil, fmt.Errorf("no commander for %s", side)
	}
	return session, nil
}

func (s *Service) handleWorld(e dispatcher.Event) (any, error) {
	world, err := s.deps.Parser.ParseWorld(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse world: %w", err)
	}
	s.deps.Mission.SetWorld(world)
	s.deps.Logger.Info("World set", "world", world.Name, "x", world.LocationX, "y", world.LocationY)
	return nil, nil
}

func (s *Service) handleCommanderInit(e dispatcher.Event) (any, error) {
	cfg, err := s.deps.Parser.ParseCommanderConfig(e.Args)
	if err != nil {
		return nil, err
	}
	if prev, ok := s.deps.Mission.Session(cfg.Side); ok && prev.Commander.Phase() != core.PhaseTerminated {
		return nil, fmt.Errorf("commander for %s already %s", cfg.Side, prev.Commander.Phase())
	}

	feed := host.NewFeed(cfg.Side)
	var sink commander.OrderSink
	if s.deps.Orders != nil {
		sink = &recordingSink{next: s.deps.Orders, store: s.deps.Storage, log: s.deps.Logger}
	}
	cmd := commander.New(commander.Dependencies{
		Units:       feed,
		Terrain:     feed,
		Orders:      sink,
		Diagnostics: s.deps.Diagnostics,
		Tuning:      s.deps.Tuning,
	}, s.deps.Options...)
	if err := cmd.InitCommander(cfg); err != nil {
		return nil, err
	}
	if err := s.deps.Mission.AddSession(&mission.Session{Side: cfg.Side, Commander: cmd, Feed: feed}); err != nil {
		return nil, err
	}
	return string(cmd.Phase()), nil
}

func (s *Service) handleTick(e dispatcher.Event) (any, error) {
	session, err := s.session(e.Args)
	if err != nil {
		return nil, err
	}
	phase, err := session.Commander.Tick()
	if err != nil {
		return nil, err
	}
	return string(phase), nil
}

func (s *Service) handleSuspend(e dispatcher.Event) (any, error) {
	session, err := s.session(e.Args)
	if err != nil {
		return nil, err
	}
	return nil, session.Commander.Suspend()
}

func (s *Service) handleResume(e dispatcher.Event) (any, error) {
	session, err := s.session(e.Args)
	if err != nil {
		return nil, err
	}
	return nil, session.Commander.Resume()
}

func (s *Service) handleTerminate(e dispatcher.Event) (any, error) {
	session, err := s.session(e.Args)
	if err != nil {
		return nil, err
	}
	if err := session.Commander.Terminate(); err != nil {
		return nil, err
	}
	return string(session.Commander.Phase()), nil
}

// StatusResponse is returned by :COMMANDER:STATUS:
type StatusResponse struct {
	Side              core.Side  `json:"side"`
	Phase             core.Phase `json:"phase"`
	Tick              uint64     `json:"tick"`
	Squads            int        `json:"squads"`
	Zones             int        `json:"zones"`
	Orders            int        `json:"orders"`
	Overrides         int        `json:"overrides"`
	Errors            int        `json:"errors"`
	TerminationReason string     `json:"terminationReason,omitempty"`
}

func (s *Service) handleStatus(e dispatcher.Event) (any, error) {
	session, err := s.session(e.Args)
	if err != nil {
		return nil, err
	}
	snap := session.Commander.Snapshot()
	return StatusResponse{
		Side:              session.Side,
		Phase:             snap.State.Phase,
		Tick:              snap.State.Tick,
		Squads:            len(snap.Squads),
		Zones:             len(snap.Zones),
		Orders:            len(snap.Orders),
		Overrides:         len(session.Commander.Overrides()),
		Errors:            snap.State.ErrorCount,
		TerminationReason: snap.State.TerminationReason,
	}, nil
}

func (s *Service) handleRosterUpdate(e dispatcher.Event) (any, error) {
	side, units, err := s.deps.Parser.ParseRoster(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	session, err := s.sessionFor(side)
	if err != nil {
		return nil, err
	}
	session.Feed.PushUnits(units)
	return nil, nil
}

func (s *Service) handleRosterFailed(e dispatcher.Event) (any, error) {
	side, reason, err := s.deps.Parser.ParseReason(e.Args)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionFor(side)
	if err != nil {
		return nil, err
	}
	session.Feed.FailUnits(reason)
	return nil, nil
}

func (s *Service) handleTerrainUpdate(e dispatcher.Event) (any, error) {
	side, samples, err := s.deps.Parser.ParseTerrain(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse terrain: %w", err)
	}
	session, err := s.sessionFor(side)
	if err != nil {
		return nil, err
	}
	session.Feed.PushTerrain(samples)
	return nil, nil
}

func (s *Service) handleTerrainUnavailable(e dispatcher.Event) (any, error) {
	side, reason, err := s.deps.Parser.ParseReason(e.Args)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionFor(side)
	if err != nil {
		return nil, err
	}
	session.Feed.FailTerrain(reason)
	return nil, nil
}

func (s *Service) handleOrdersSet(e dispatcher.Event) (any, error) {
	side, order, err := s.deps.Parser.ParseOrderOverride(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order: %w", err)
	}
	session, err := s.sessionFor(side)
	if err != nil {
		return nil, err
	}
	return nil, session.Commander.SetOrders([]core.Order{order})
}

func (s *Service) handleOrdersClear(e dispatcher.Event) (any, error) {
	side, ids, err := s.deps.Parser.ParseSquadIDs(e.Args)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionFor(side)
	if err != nil {
		return nil, err
	}
	session.Commander.ClearOrders(ids...)
	return nil, nil
}

func (s *Service) handleOrdersFailed(e dispatcher.Event) (any, error) {
	side, ids, err := s.deps.Parser.ParseSquadIDs(e.Args)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no squad ids given")
	}
	session, err := s.sessionFor(side)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		session.Commander.ReportDispatchFailure(id)
	}
	return nil, nil
}

// handleUnitsAvailable returns [[id,[x,y,z],status,skill],...], the row format of
// :ROSTER:UPDATE:
func (s *Service) handleUnitsAvailable(e dispatcher.Event) (any, error) {
	session, err := s.session(e.Args)
	if err != nil {
		return nil, err
	}
	units := session.Commander.GetAvailableUnits()
	rows := make([][]any, len(units))
	for i, u := range units {
		rows[i] = []any{u.ID, []float64{u.Position.X, u.Position.Y, u.Position.Z}, string(u.Status), u.Skill}
	}
	return rows, nil
}

// handleSquads returns [[squadId,role,[unitIds],zoneId,action],...]; zoneId and
// action are -1 and "" for squads without an order
func (s *Service) handleSquads(e dispatcher.Event) (any, error) {
	session, err := s.session(e.Args)
	if err != nil {
		return nil, err
	}
	squads := session.Commander.Squads()
	rows := make([][]any, len(squads))
	for i, sq := range squads {
		zone, action := -1, ""
		if sq.Order != nil {
			zone, action = sq.Order.ZoneID, string(sq.Order.Action)
		}
		rows[i] = []any{sq.ID, string(sq.Role), sq.UnitIDs, zone, action}
	}
	return rows, nil
}

// EventView is a diagnostics event as returned to SQF
type EventView struct {
	Kind    diagnostics.Kind `json:"kind"`
	Side    core.Side        `json:"side"`
	Tick    uint64           `json:"tick"`
	Message string           `json:"message"`
	Error   string           `json:"error,omitempty"`
	Fatal   bool             `json:"fatal,omitempty"`
	Fields  map[string]any   `json:"fields,omitempty"`
}

func newEventView(e diagnostics.Event) EventView {
	return EventView{
		Kind:    e.Kind,
		Side:    e.Side,
		Tick:    e.Tick,
		Message: e.Message,
		Error:   e.Error(),
		Fatal:   e.Fatal,
		Fields:  e.Fields,
	}
}

// handleDiagnostics returns the most recent recorded events, newest last. Optional
// args are a side filter and a count.
func (s *Service) handleDiagnostics(e dispatcher.Event) (any, error) {
	if s.deps.History == nil {
		return []EventView{}, nil
	}
	util.CleanArgs(e.Args)
	var side core.Side
	var kind diagnostics.Kind
	limit := 20
	if len(e.Args) > 0 && e.Args[0] != "" {
		var err error
		if side, err = core.ParseSide(e.Args[0]); err != nil {
			return nil, err
		}
	}
	if len(e.Args) > 1 {
		n, err := util.ParseInt(e.Args[1])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("diagnostics: invalid count %q", e.Args[1])
		}
		limit = n
	}
	if len(e.Args) > 2 && e.Args[2] != "" {
		kind = diagnostics.Kind(strings.ToLower(e.Args[2]))
	}

	var events []diagnostics.Event
	if kind != "" {
		events = s.deps.History.Filter(kind)
	} else {
		events = s.deps.History.Events()
	}
	out := make([]EventView, 0, limit)
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		if side == "" || events[i].Side == side {
			out = append(out, newEventView(events[i]))
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Service) handleMetric(e dispatcher.Event) (any, error) {
	if s.deps.Metrics == nil {
		return nil, nil
	}
	bucket, point, err := influx.ProcessMetricData(e.Args, util.FixEscapeQuotes, util.TrimQuotes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return nil, s.deps.Metrics.WritePoint(ctx, bucket, point)
}

// handleLog writes [level, function, message] from SQF to the extension log
func (s *Service) handleLog(e dispatcher.Event) (any, error) {
	if len(e.Args) < 3 {
		return nil, fmt.Errorf("log: expected level, function and message, got %d args", len(e.Args))
	}
	util.CleanArgs(e.Args)
	level := logging.ParseLevel(e.Args[0])
	s.deps.Logger.Log(context.Background(), level, strings.Join(e.Args[2:], " "), "function", e.Args[1], "source", "sqf")
	return nil, nil
}
