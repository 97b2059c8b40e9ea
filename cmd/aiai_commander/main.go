package main

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C" // This is required to import the C code

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AIAI/extension/internal/config"
	"github.com/AIAI/extension/internal/diagnostics"
	"github.com/AIAI/extension/internal/dispatcher"
	"github.com/AIAI/extension/internal/handlers"
	"github.com/AIAI/extension/internal/host"
	"github.com/AIAI/extension/internal/influx"
	"github.com/AIAI/extension/internal/logging"
	"github.com/AIAI/extension/internal/mission"
	"github.com/AIAI/extension/internal/monitor"
	intOtel "github.com/AIAI/extension/internal/otel"
	"github.com/AIAI/extension/internal/storage"
	"github.com/AIAI/extension/internal/storage/memory"
	"github.com/AIAI/extension/pkg/a3interface"

	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion string = "0.1.0"
	BuildDate               string = "unknown"

	Addon         string = "aiai"
	ExtensionName string = "aiai_commander"
)

// file paths
var (
	// ArmaDir is the path to the Arma 3 root directory
	ArmaDir string

	// AddonFolder holds the config, init log and influx backup. It is the module's
	// own folder unless the module sits in the Arma root, then @aiai.
	AddonFolder string

	// ModulePath is the absolute path to this library file
	ModulePath string

	InitLogFilePath string
	InitLogFile     *os.File
	LogFilePath     string
	LogFile         *os.File
)

// global variables
var (
	SlogManager *logging.SlogManager
	Logger      *slog.Logger

	OTelProvider  *intOtel.Provider
	InfluxManager *influx.Manager

	SessionStartTime time.Time = time.Now()

	missionCtx = mission.NewContext()

	// callbackWriter delivers callbacks to the engine; the CLI demo swaps it for stdout
	callbackWriter host.CallbackWriter = a3interface.WriteArmaCallback

	// Services
	handlerService  *handlers.Service
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
	history         *diagnostics.Recorder
	storageBackend  storage.Backend
)

// init is run automatically when the module is loaded
func init() {
	var err error

	ArmaDir, err = a3interface.GetArmaDir()
	if err != nil {
		panic(err)
	}
	ModulePath = a3interface.GetModulePath()
	AddonFolder = a3interface.AddonFolder(ArmaDir, ModulePath, Addon)

	if _, err := os.Stat(AddonFolder); os.IsNotExist(err) {
		_ = os.MkdirAll(AddonFolder, 0755)
	}

	InitLogFilePath = filepath.Join(AddonFolder, "init.log")
	InitLogFile, err = os.Create(InitLogFilePath)
	if err != nil {
		// logging isn't set up yet
		fmt.Fprintf(os.Stderr, "Failed to create init log file: %v\n", err)
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(InitLogFile, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	if err = config.Load(AddonFolder); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		_ = os.MkdirAll(logsDir, 0755)
	}

	LogFilePath = logging.LogFilePath(logsDir, ExtensionName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}
	Logger.Info("Begin logging in logs directory", "path", LogFilePath)

	setupLogging()

	Logger.Info("Setting up a3interface...")
	if err = setupA3Interface(); err != nil {
		Logger.Error("Failed to set up a3interfaces!", "error", err)
		panic(err)
	}
	Logger.Info("Set up a3interfaces")
}

// setupLogging re-runs the slog setup with the log file, OTel and Graylog attached
func setupLogging() {
	var err error
	level := viper.GetString("logLevel")

	otelCfg := config.GetOTelConfig()
	OTelProvider, err = intOtel.New(intOtel.FromConfig(otelCfg, CurrentExtensionVersion, LogFile))
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider = nil
	} else if OTelProvider.Enabled() {
		Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
	}
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	opts := []logging.SetupOption{logging.WithContext(missionCtx.LogAttrs)}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGelfWriter(gl.Address)
		if err != nil {
			Logger.Warn("Graylog unavailable", "address", gl.Address, "error", err)
		} else {
			opts = append(opts, logging.WithHandler(logging.NewGelfHandler(w, level, ExtensionName)))
		}
	}

	SlogManager.Setup(LogFile, level, otelLogProvider, opts...)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)
}

func setupA3Interface() error {
	a3interface.SetVersion(CurrentExtensionVersion)

	d, err := dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	eventDispatcher = d

	sinks := []diagnostics.Sink{diagnostics.NewLogSink(Logger)}
	if ms, err := diagnostics.NewMetricsSink(); err != nil {
		Logger.Warn("Failed to create metrics sink", "error", err)
	} else {
		sinks = append(sinks, ms)
	}

	var metrics diagnostics.PointWriter
	InfluxManager = influx.NewManager(
		logging.NewZerolog(LogFile, viper.GetString("logLevel"), "influx"),
		filepath.Join(AddonFolder, "influx_backup.log.gzip"),
	)
	switch err := InfluxManager.Connect(); err {
	case nil:
		metrics = InfluxManager
		sinks = append(sinks, diagnostics.NewInfluxSink(InfluxManager, Logger))
	case influx.ErrDisabled:
		Logger.Info("InfluxDB disabled")
	default:
		Logger.Error("Failed to connect to InfluxDB", "error", err)
	}

	history = diagnostics.NewRecorder(config.GetInt("diagnostics.historySize"))
	sinks = append(sinks, history)

	storageBackend = initStorage(config.GetStorageConfig())

	handlerService = handlers.NewService(handlers.Dependencies{
		Logger:      Logger,
		Mission:     missionCtx,
		Orders:      host.NewCallbackSink(ExtensionName, writeCallback),
		Diagnostics: diagnostics.NewMulti(sinks...),
		Tuning:      config.GetTuning(),
		Storage:     storageBackend,
		Metrics:     metrics,
		History:     history,
	})
	handlerService.RegisterHandlers(d)
	registerLifecycleHandlers(d)
	a3interface.SetDispatcher(d)

	monitorService = monitor.NewService(monitor.Dependencies{
		Logger:         Logger,
		MissionContext: missionCtx,
		Storage:        storageBackend,
		AddonFolder:    AddonFolder,
		Interval:       config.GetMonitorConfig().Interval,
	})
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start monitor", "error", err)
	}

	Logger.Info("Dispatcher initialized", "commands", len(d.Commands()))
	return nil
}

// initStorage creates and initializes the configured snapshot backend. A backend that
// fails to come up is replaced by the memory backend so orders are still recorded.
func initStorage(cfg config.StorageConfig) storage.Backend {
	dbLog := logging.NewZerolog(LogFile, viper.GetString("logLevel"), "database")
	backend, err := storage.NewBackend(cfg, Logger, dbLog)
	if err == nil {
		if err = backend.Init(); err == nil {
			Logger.Info("Storage backend initialized", "type", cfg.Type)
			return backend
		}
	}
	Logger.Error("Failed to initialize storage backend, falling back to memory", "type", cfg.Type, "error", err)

	fallback := memory.New(cfg.Memory)
	if err := fallback.Init(); err != nil {
		Logger.Error("Failed to initialize memory storage", "error", err)
	}
	return fallback
}

func writeCallback(name, function string, data ...string) error {
	return callbackWriter(name, function, data...)
}

func initExtension() {
	if err := writeCallback(ExtensionName, ":EXT:READY:"); err != nil {
		Logger.Warn("Failed to send EXT:READY callback", "error", err)
	}
	_ = writeCallback(ExtensionName, ":VERSION:", CurrentExtensionVersion)
}

func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":INIT:", func(e dispatcher.Event) (any, error) {
		go initExtension()
		return "ok", nil
	})

	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentExtensionVersion, BuildDate}, nil
	})

	d.Register(":GETDIR:ARMA:", func(e dispatcher.Event) (any, error) {
		return ArmaDir, nil
	})

	d.Register(":GETDIR:MODULE:", func(e dispatcher.Event) (any, error) {
		return ModulePath, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return LogFilePath, nil
	})

	d.Register(":SAVE:", func(e dispatcher.Event) (any, error) {
		Logger.Info("Received :SAVE: command, saving commander snapshots")
		if err := monitorService.SaveSnapshots(); err != nil {
			Logger.Error("Failed to save snapshots", "error", err)
			return nil, err
		}
		if exp, ok := storageBackend.(storage.Exporter); ok && exp.LastExportPath() != "" {
			Logger.Info("Snapshots exported", "path", exp.LastExportPath())
		}
		if OTelProvider != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := OTelProvider.Flush(ctx); err != nil {
				Logger.Warn("Failed to flush OTel data", "error", err)
			}
		}
		return "ok", nil
	}, dispatcher.Logged())
}

// shutdown stops the background services and closes every connection
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	monitorService.Stop()
	if err := monitorService.SaveSnapshots(); err != nil {
		Logger.Warn("Failed to save final snapshots", "error", err)
	}
	if err := eventDispatcher.Close(ctx); err != nil {
		Logger.Warn("Dispatcher did not drain", "error", err)
	}
	if err := storageBackend.Close(); err != nil {
		Logger.Warn("Failed to close storage", "error", err)
	}
	if err := InfluxManager.Close(); err != nil {
		Logger.Warn("Failed to close InfluxDB", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel", "error", err)
		}
	}
	_ = SlogManager.Flush(ctx)
}
