package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AIAI/extension/internal/database"
	"github.com/AIAI/extension/internal/dispatcher"
	gormstorage "github.com/AIAI/extension/internal/storage/gorm"
	"github.com/AIAI/extension/internal/storage/memory"
	"github.com/AIAI/extension/pkg/core"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Println("usage: aiai_commander demo [side] [ticks] | export <file> | latest <db> <side>")
		return
	}
	defer shutdown()

	var err error
	switch strings.ToLower(args[0]) {
	case "demo":
		side, ticks := "WEST", 20
		if len(args) > 1 {
			side = strings.ToUpper(args[1])
		}
		if len(args) > 2 {
			if ticks, err = strconv.Atoi(args[2]); err != nil {
				fmt.Println("invalid tick count:", args[2])
				return
			}
		}
		err = runDemo(side, ticks)
	case "export":
		if len(args) < 2 {
			fmt.Println("No export file provided.")
			return
		}
		err = printExport(args[1])
	case "latest":
		if len(args) < 3 {
			fmt.Println("Usage: latest <db file> <side>")
			return
		}
		err = printLatest(args[1], args[2])
	default:
		fmt.Println("unknown command:", args[0])
		return
	}
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

// dispatchDemoEvent sends a command through the dispatcher the way the engine would
func dispatchDemoEvent(command string, args ...string) (any, error) {
	return eventDispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// runDemo drives one commander with a synthetic roster and terrain, printing every
// order callback to stdout
func runDemo(side string, ticks int) error {
	callbackWriter = func(name, function string, data ...string) error {
		fmt.Println(name, function, strings.Join(data, " "))
		return nil
	}

	rng := rand.New(rand.NewSource(1))
	if _, err := dispatchDemoEvent(":WORLD:", "Altis", "25.0", "37.5"); err != nil {
		return err
	}
	if _, err := dispatchDemoEvent(":COMMANDER:INIT:", side, "true", "Medium", "BALANCED"); err != nil {
		return err
	}
	if _, err := dispatchDemoEvent(":TERRAIN:UPDATE:", side, demoTerrain(rng, 8)); err != nil {
		return err
	}

	for i := 0; i < ticks; i++ {
		// lose a unit every few ticks so the planner has something to react to
		if _, err := dispatchDemoEvent(":ROSTER:UPDATE:", side, demoRoster(rng, 24-i/5)); err != nil {
			return err
		}
		phase, err := dispatchDemoEvent(":COMMANDER:TICK:", side)
		if err != nil {
			return err
		}
		fmt.Printf("tick %d: %v\n", i+1, phase)
	}

	if err := monitorService.SaveSnapshots(); err != nil {
		return err
	}
	out, err := json.MarshalIndent(monitorService.GetStatus(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func demoRoster(rng *rand.Rand, n int) string {
	rows := make([]string, n)
	for i := range rows {
		status := "AVAILABLE"
		if rng.Intn(10) == 0 {
			status = "TASKED"
		}
		rows[i] = fmt.Sprintf(`[%d,[%.1f,%.1f,0],"%s",%.2f]`,
			i+1, 1000+rng.Float64()*500, 1000+rng.Float64()*500, status, 0.3+rng.Float64()*0.6)
	}
	return "[" + strings.Join(rows, ",") + "]"
}

func demoTerrain(rng *rand.Rand, n int) string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"id":%d,"centroid":[%.1f,%.1f,%.1f],"elevation":%.1f,"surroundingElevation":%.1f,"obstructions":%d,"visibilityRange":%.0f,"passageWidth":%.1f}`,
			i+1, 800+rng.Float64()*900, 800+rng.Float64()*900, rng.Float64()*80,
			rng.Float64()*80, rng.Float64()*40, rng.Intn(12), 300+rng.Float64()*1500, 4+rng.Float64()*40)
	}
	return "[" + strings.Join(rows, ",") + "]"
}

// printExport summarizes a snapshot export written by the memory backend
func printExport(path string) error {
	exp, err := memory.ReadExport(path)
	if err != nil {
		return err
	}
	fmt.Println("Exported at:", exp.ExportedAt.Format(time.RFC3339))
	for _, side := range exp.Sides {
		rec := exp.Records[side]
		s := rec.Snapshot
		fmt.Printf("%s: phase=%s tick=%d units=%d squads=%d zones=%d snapshots=%d orders=%d\n",
			side, s.State.Phase, s.State.Tick, len(s.Units), len(s.Squads), len(s.Zones),
			rec.Snapshots, len(rec.Orders))
	}
	return nil
}

// printLatest reads the newest snapshot of side from a SQLite dump
func printLatest(path, side string) error {
	s, err := core.ParseSide(side)
	if err != nil {
		return err
	}
	db, err := database.OpenSqlite(path)
	if err != nil {
		return err
	}
	store := gormstorage.New(gormstorage.Dependencies{DB: db, Logger: Logger})
	snap, err := store.Latest(s)
	if err != nil {
		return err
	}
	fmt.Printf("%s session=%s phase=%s tick=%d units=%d squads=%d zones=%d orders=%d errors=%d at %s\n",
		snap.Config.Side, snap.Session, snap.State.Phase, snap.State.Tick, len(snap.Units), len(snap.Squads),
		len(snap.Zones), len(snap.Orders), snap.State.ErrorCount, snap.TakenAt.Format(time.RFC3339))
	return nil
}
