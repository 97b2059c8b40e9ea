// Package monitor periodically writes a status file and persists commander snapshots.
package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AIAI/extension/internal/mission"
	"github.com/AIAI/extension/internal/storage"
	"github.com/AIAI/extension/pkg/core"
)

// StatusFileName is written in the addon folder
const StatusFileName = "status.txt"

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger         *slog.Logger
	MissionContext *mission.Context
	Storage        storage.Backend
	AddonFolder    string
	Interval       time.Duration
}

// SideStatus is the status line of one commander
type SideStatus struct {
	Session      string     `json:"session"`
	Side         core.Side  `json:"side"`
	Phase        core.Phase `json:"phase"`
	Tick         uint64     `json:"tick"`
	Units        int        `json:"units"`
	Squads       int        `json:"squads"`
	Zones        int        `json:"zones"`
	Orders       int        `json:"orders"`
	Errors       int        `json:"errors"`
	Reason       string     `json:"terminationReason,omitempty"`
	RosterPushes uint64     `json:"rosterPushes"`
}

// Status is the content of the status file
type Status struct {
	Time     time.Time    `json:"time"`
	World    string       `json:"world"`
	Uptime   string       `json:"uptime"`
	Sides    []SideStatus `json:"sides"`
	LastSave time.Time    `json:"lastSave,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	lastSave  time.Time
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus collects the status of every commander
func (s *Service) GetStatus() Status {
	ctx := s.deps.MissionContext
	st := Status{
		Time:   time.Now(),
		World:  ctx.GetWorld().Name,
		Uptime: time.Since(ctx.Started()).Round(time.Second).String(),
		Sides:  []SideStatus{},
	}
	s.mu.RLock()
	st.LastSave = s.lastSave
	s.mu.RUnlock()

	for _, session := range ctx.Sessions() {
		snap := session.Commander.Snapshot()
		st.Sides = append(st.Sides, SideStatus{
			Session:      session.ID.String(),
			Side:         session.Side,
			Phase:        snap.State.Phase,
			Tick:         snap.State.Tick,
			Units:        len(snap.Units),
			Squads:       len(snap.Squads),
			Zones:        len(snap.Zones),
			Orders:       len(snap.Orders),
			Errors:       snap.State.ErrorCount,
			Reason:       snap.State.TerminationReason,
			RosterPushes: session.Feed.RosterPushes(),
		})
	}
	return st
}

// WriteStatus replaces the status file with the current status
func (s *Service) WriteStatus() error {
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	path := filepath.Join(s.deps.AddonFolder, StatusFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// SaveSnapshots stores a snapshot of every commander that has planning state and
// flushes the store. Order history is written by the order sink on delivery only.
func (s *Service) SaveSnapshots() error {
	if s.deps.Storage == nil {
		return nil
	}
	var errs []error
	for _, session := range s.deps.MissionContext.Sessions() {
		phase := session.Commander.Phase()
		if phase == core.PhaseUninitialized {
			continue
		}
		snap := session.Commander.Snapshot()
		snap.Session = session.ID.String()
		if err := s.deps.Storage.SaveSnapshot(snap); err != nil {
			errs = append(errs, fmt.Errorf("%s snapshot: %w", session.Side, err))
		}
	}
	if err := s.deps.Storage.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if len(errs) == 0 {
		s.mu.Lock()
		s.lastSave = time.Now()
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(s.done)
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				if len(s.deps.MissionContext.Sessions()) == 0 {
					continue
				}
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
				if err := s.SaveSnapshots(); err != nil {
					logger.Error("Error saving snapshots", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
