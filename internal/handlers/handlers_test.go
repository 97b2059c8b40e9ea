package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/AIAI/extension/internal/config"
	"github.com/AIAI/extension/internal/diagnostics"
	"github.com/AIAI/extension/internal/dispatcher"
	"github.com/AIAI/extension/internal/host"
	"github.com/AIAI/extension/internal/influx"
	"github.com/AIAI/extension/internal/storage/memory"
	"github.com/AIAI/extension/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct{}

func (mockLogger) Debug(string, ...any) {}
func (mockLogger) Info(string, ...any)  {}
func (mockLogger) Error(string, ...any) {}

type callbackLog struct {
	mu       sync.Mutex
	payloads []host.OrderMessage
	fail     map[int]bool
}

func (c *callbackLog) write(_ string, function string, data ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var msg host.OrderMessage
	if err := json.Unmarshal([]byte(data[0]), &msg); err != nil {
		return err
	}
	if function != host.OrderFunction {
		return errors.New("unexpected function " + function)
	}
	if c.fail[msg.SquadID] {
		return errors.New("callback buffer full")
	}
	c.payloads = append(c.payloads, msg)
	return nil
}

type metricWriter struct {
	bucket string
	line   string
}

func (m *metricWriter) WritePoint(_ context.Context, bucket string, p *influxdb2_write.Point) error {
	m.bucket = bucket
	m.line = influxdb2_write.PointToLineProtocol(p, 1)
	return nil
}

type fixture struct {
	svc       *Service
	d         *dispatcher.Dispatcher
	callbacks *callbackLog
	store     *memory.Backend
	metrics   *metricWriter
	history   *diagnostics.Recorder
	logs      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		callbacks: &callbackLog{fail: map[int]bool{}},
		store:     memory.New(config.MemoryConfig{OutputDir: t.TempDir()}),
		metrics:   &metricWriter{},
		history:   diagnostics.NewRecorder(100),
		logs:      &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.svc = NewService(Dependencies{
		Logger:      logger,
		Orders:      host.NewCallbackSink("aiai_commander", f.callbacks.write),
		Diagnostics: f.history,
		Storage:     f.store,
		Metrics:     f.metrics,
		History:     f.history,
	})

	var err error
	f.d, err = dispatcher.New(mockLogger{})
	require.NoError(t, err)
	f.svc.RegisterHandlers(f.d)
	t.Cleanup(func() { _ = f.d.Close(context.Background()) })
	return f
}

func (f *fixture) call(t *testing.T, command string, args ...string) (any, error) {
	t.Helper()
	require.True(t, f.d.HasHandler(command), command)
	return f.d.Dispatch(dispatcher.Event{Command: command, Args: args})
}

const (
	roster  = `[[1,[100,100,0],"AVAILABLE",0.6],[2,[110,100,0],"AVAILABLE",0.6],[3,[120,100,0],"AVAILABLE",0.6],[4,[130,100,0],"AVAILABLE",0.6]]`
	terrain = `[{"id":1,"key":"hill","centroid":[200,200,40],"elevation":40,"visibilityRange":1500},{"id":2,"centroid":[150,50,0],"passageWidth":8}]`
)

func (f *fixture) activate(t *testing.T, side string) {
	t.Helper()
	phase, err := f.call(t, ":COMMANDER:INIT:", side, "true", "Medium", "BALANCED")
	require.NoError(t, err)
	assert.Equal(t, string(core.PhaseInitializing), phase)

	_, err = f.call(t, ":ROSTER:UPDATE:", side, roster)
	require.NoError(t, err)
	_, err = f.call(t, ":TERRAIN:UPDATE:", side, terrain)
	require.NoError(t, err)

	phase, err = f.call(t, ":COMMANDER:TICK:", side)
	require.NoError(t, err)
	require.Equal(t, string(core.PhaseActive), phase)
}

func TestRegisterHandlers(t *testing.T) {
	f := newFixture(t)
	for _, cmd := range []string{
		":WORLD:", ":COMMANDER:INIT:", ":COMMANDER:TICK:", ":COMMANDER:SUSPEND:", ":COMMANDER:RESUME:",
		":COMMANDER:TERMINATE:", ":COMMANDER:STATUS:", ":ROSTER:UPDATE:", ":ROSTER:FAILED:",
		":TERRAIN:UPDATE:", ":TERRAIN:UNAVAILABLE:", ":ORDERS:SET:", ":ORDERS:CLEAR:", ":ORDERS:FAILED:",
		":UNITS:AVAILABLE:", ":SQUADS:", ":DIAGNOSTICS:", ":METRIC:", ":LOG:",
	} {
		assert.True(t, f.d.HasHandler(cmd), cmd)
	}
}

func TestWorld(t *testing.T) {
	f := newFixture(t)
	_, err := f.call(t, ":WORLD:", `"Altis"`, "25", "40")
	require.NoError(t, err)
	assert.Equal(t, "Altis", f.svc.Mission().GetWorld().Name)

	_, err = f.call(t, ":WORLD:", "Altis")
	assert.Error(t, err)
}

func TestCommanderFlow(t *testing.T) {
	f := newFixture(t)
	f.activate(t, "WEST")

	require.NotEmpty(t, f.callbacks.payloads, "first active tick dispatches orders")
	for _, msg := range f.callbacks.payloads {
		assert.Equal(t, core.SideWest, msg.Side)
		assert.Equal(t, uint64(1), msg.IssuedAt)
	}
	rec, ok := f.store.Side(core.SideWest)
	require.True(t, ok)
	assert.Len(t, rec.Orders, len(f.callbacks.payloads))

	status, err := f.call(t, ":COMMANDER:STATUS:", "WEST")
	require.NoError(t, err)
	st := status.(StatusResponse)
	assert.Equal(t, core.PhaseActive, st.Phase)
	assert.Equal(t, uint64(1), st.Tick)
	assert.Equal(t, 2, st.Zones)

	units, err := f.call(t, ":UNITS:AVAILABLE:", "WEST")
	require.NoError(t, err)
	assert.Len(t, units, 4)

	squads, err := f.call(t, ":SQUADS:", "WEST")
	require.NoError(t, err)
	assert.NotEmpty(t, squads)

	_, err = f.call(t, ":COMMANDER:SUSPEND:", "WEST")
	require.NoError(t, err)
	phase, err := f.call(t, ":COMMANDER:TICK:", "WEST")
	require.NoError(t, err)
	assert.Equal(t, string(core.PhaseSuspended), phase)

	_, err = f.call(t, ":COMMANDER:RESUME:", "WEST")
	require.NoError(t, err)
	phase, err = f.call(t, ":COMMANDER:TICK:", "WEST")
	require.NoError(t, err)
	assert.Equal(t, string(core.PhaseActive), phase)

	_, err = f.call(t, ":COMMANDER:TERMINATE:", "WEST")
	require.NoError(t, err)
	_, err = f.call(t, ":COMMANDER:TICK:", "WEST")
	assert.ErrorIs(t, err, core.ErrTerminated)

	// a terminated side can be started again
	phase, err = f.call(t, ":COMMANDER:INIT:", "WEST", "false", "High", "DEFENSIVE")
	require.NoError(t, err)
	assert.Equal(t, string(core.PhaseInitializing), phase)
}

func TestCommanderInit_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.call(t, ":COMMANDER:INIT:", "CIV", "false", "Low", "BALANCED")
	assert.Error(t, err)
	_, err = f.call(t, ":COMMANDER:INIT:", "WEST", "false", "1.5", "BALANCED")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	_, ok := f.svc.Mission().Session(core.SideWest)
	assert.False(t, ok, "invalid config registers no session")

	_, err = f.call(t, ":COMMANDER:INIT:", "WEST", "false", "Low", "BALANCED")
	require.NoError(t, err)
	_, err = f.call(t, ":COMMANDER:INIT:", "WEST", "false", "Low", "BALANCED")
	assert.Error(t, err, "second init while running")
}

func TestNoSession(t *testing.T) {
	f := newFixture(t)
	for _, call := range [][]string{
		{":COMMANDER:TICK:", "EAST"},
		{":COMMANDER:STATUS:", "EAST"},
		{":ROSTER:UPDATE:", "EAST", "[]"},
		{":ROSTER:FAILED:", "EAST", "timeout"},
		{":TERRAIN:UNAVAILABLE:", "EAST"},
		{":ORDERS:CLEAR:", "EAST"},
		{":UNITS:AVAILABLE:", "EAST"},
	} {
		_, err := f.call(t, call[0], call[1:]...)
		assert.Error(t, err, call[0])
	}
}

func TestRosterFailed_KeepsState(t *testing.T) {
	f := newFixture(t)
	f.activate(t, "EAST")

	_, err := f.call(t, ":ROSTER:FAILED:", "EAST", `"group query timed out"`)
	require.NoError(t, err)
	phase, err := f.call(t, ":COMMANDER:TICK:", "EAST")
	require.NoError(t, err)
	assert.Equal(t, string(core.PhaseActive), phase)

	st, _ := f.call(t, ":COMMANDER:STATUS:", "EAST")
	assert.Equal(t, 1, st.(StatusResponse).Errors)
}

func TestOrders(t *testing.T) {
	f := newFixture(t)
	f.activate(t, "GUER")
	sent := len(f.callbacks.payloads)

	_, err := f.call(t, ":ORDERS:SET:", "GUER", "1", "HOLD", "[500,500,0]", "4")
	require.NoError(t, err)
	_, err = f.call(t, ":COMMANDER:TICK:", "GUER")
	require.NoError(t, err)

	require.Greater(t, len(f.callbacks.payloads), sent)
	last := f.callbacks.payloads[len(f.callbacks.payloads)-1]
	assert.True(t, last.Manual)
	assert.Equal(t, [3]float64{500, 500, 0}, last.Target)
	assert.Equal(t, 4, last.Priority)

	st, _ := f.call(t, ":COMMANDER:STATUS:", "GUER")
	assert.Equal(t, 1, st.(StatusResponse).Overrides)

	_, err = f.call(t, ":ORDERS:SET:", "GUER", "99", "MOVE", "1")
	assert.Error(t, err, "unknown squad")

	_, err = f.call(t, ":ORDERS:CLEAR:", "GUER")
	require.NoError(t, err)
	st, _ = f.call(t, ":COMMANDER:STATUS:", "GUER")
	assert.Zero(t, st.(StatusResponse).Overrides)

	_, err = f.call(t, ":ORDERS:FAILED:", "GUER")
	assert.Error(t, err)
	_, err = f.call(t, ":ORDERS:FAILED:", "GUER", "1")
	require.NoError(t, err)
}

func TestRecordingSink_PartialFailure(t *testing.T) {
	f := newFixture(t)
	f.callbacks.fail[2] = true
	f.activate(t, "WEST")

	rec, _ := f.store.Side(core.SideWest)
	for _, e := range rec.Orders {
		assert.NotEqual(t, 2, e.Order.SquadID, "undelivered orders are not recorded")
	}
}

func TestMetric(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.handleMetric(dispatcher.Event{Args: []string{
		`"` + influx.BucketHost + `"`, `"fps"`, `"tag::server::main"`, `"field::float::value::48.5"`,
	}})
	require.NoError(t, err)
	assert.Equal(t, influx.BucketHost, f.metrics.bucket)
	assert.Contains(t, f.metrics.line, "fps,server=main value=48.5")

	_, err = f.svc.handleMetric(dispatcher.Event{Args: []string{"only"}})
	assert.Error(t, err)
}

func TestLog(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.handleLog(dispatcher.Event{Args: []string{`"WARN"`, `"fnc_tick"`, `"slow tick"`}})
	require.NoError(t, err)
	assert.Contains(t, f.logs.String(), "level=WARN")
	assert.Contains(t, f.logs.String(), "function=fnc_tick")

	_, err = f.svc.handleLog(dispatcher.Event{Args: []string{"INFO"}})
	assert.Error(t, err)
}

func TestDiagnostics(t *testing.T) {
	f := newFixture(t)
	f.activate(t, "WEST")
	f.activate(t, "EAST")
	_, err := f.call(t, ":ROSTER:FAILED:", "EAST", "timeout")
	require.NoError(t, err)
	_, err = f.call(t, ":COMMANDER:TICK:", "EAST")
	require.NoError(t, err)

	res, err := f.call(t, ":DIAGNOSTICS:", "EAST", "50")
	require.NoError(t, err)
	events := res.([]EventView)
	require.NotEmpty(t, events)
	for _, e := range events {
		assert.Equal(t, core.SideEast, e.Side)
	}
	var sawError bool
	for _, e := range events {
		if e.Kind == diagnostics.KindError {
			sawError = true
			assert.Contains(t, e.Error, "timeout")
		}
	}
	assert.True(t, sawError)

	res, err = f.call(t, ":DIAGNOSTICS:", "", "2")
	require.NoError(t, err)
	assert.Len(t, res.([]EventView), 2)

	res, err = f.call(t, ":DIAGNOSTICS:", "", "100", "ERROR")
	require.NoError(t, err)
	require.NotEmpty(t, res.([]EventView))
	for _, e := range res.([]EventView) {
		assert.Equal(t, diagnostics.KindError, e.Kind)
	}

	_, err = f.call(t, ":DIAGNOSTICS:", "WEST", "0")
	assert.Error(t, err)
}
