package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gameobs/photometer/internal/config"
	"github.com/gameobs/photometer/internal/core"
	"github.com/gameobs/photometer/internal/items"
	"github.com/gameobs/photometer/internal/log"
	"github.com/gameobs/photometer/internal/meter"
	"github.com/gameobs/photometer/internal/metrics"
	"github.com/gameobs/photometer/internal/photon"
	"github.com/gameobs/photometer/internal/pipeline"
	"github.com/gameobs/photometer/internal/roster"
	"github.com/gameobs/photometer/internal/sink"
	"github.com/gameobs/photometer/internal/source"
)

// loadConfig merges the config file with command-line overrides and
// initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if selfName != "" {
		cfg.Roster.SelfName = selfName
	}
	if modeFlag != "" {
		cfg.Meter.Mode = modeFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Init(cfg.Log)
	return cfg, nil
}

func parseSortKey(s string) (meter.SortKey, error) {
	switch s {
	case "", "damage":
		return meter.SortDamage, nil
	case "heal":
		return meter.SortHeal, nil
	case "dps":
		return meter.SortDPS, nil
	case "hps":
		return meter.SortHPS, nil
	default:
		return 0, fmt.Errorf("unknown sort key %q", s)
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func buildEngine(cfg *config.Config, wallClock bool) (*pipeline.Engine, error) {
	mode, err := meter.ParseMode(cfg.Meter.Mode)
	if err != nil {
		return nil, err
	}
	sortKey, err := parseSortKey(sortFlag)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{}
	if cfg.Sink.Enabled {
		deps.Sink, err = sink.New(cfg.Sink.Dir)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Items.ItemsPath != "" {
		deps.Items, err = items.LoadIndex(cfg.Items.ItemsPath)
		if err != nil {
			return nil, err
		}
	}
	if cfg.Items.ZoneMapPath != "" {
		deps.Zones, err = items.LoadZones(cfg.Items.ZoneMapPath)
		if err != nil {
			return nil, err
		}
	}

	engineCfg := pipeline.Config{
		QueueSize:   cfg.Capture.QueueSize,
		ServerPorts: cfg.Capture.ServerPorts,
		ZonePorts:   cfg.Capture.ZonePorts,
		WallClock:   wallClock,
		SortKey:     sortKey,
		Meter: meter.Config{
			Mode:          mode,
			BattleTimeout: seconds(cfg.Meter.BattleTimeoutS),
			CombatGrace:   seconds(cfg.Meter.CombatGraceS),
			RateWindow:    seconds(cfg.Meter.RateWindowS),
			HistoryCap:    cfg.Meter.HistoryCap,
		},
		Roster: roster.Config{
			SelfName:    cfg.Roster.SelfName,
			SelfID:      core.ActorID(cfg.Roster.SelfID),
			DeferredCap: cfg.Roster.DeferredCap,
		},
		Codes: cfg.Events,
		Reassembly: photon.ReassemblerConfig{
			BufferTTL: seconds(cfg.Meter.ReassemblyTTLs),
			ArenaCap:  cfg.Meter.ReassemblyArena,
		},
	}
	return pipeline.New(engineCfg, deps), nil
}

// runEngine drives the engine against a source until the source ends
// or a shutdown signal arrives, then exports the final snapshot.
func runEngine(cfg *config.Config, src source.Source, wallClock bool) error {
	logger := log.GetLogger()

	eng, err := buildEngine(cfg, wallClock)
	if err != nil {
		return err
	}

	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := metricsSrv.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		logger.WithField("listen", cfg.Metrics.Listen).Info("metrics server started")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = eng.Run(ctx, src)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if stopErr := metricsSrv.Stop(shutdownCtx); stopErr != nil {
			logger.WithError(stopErr).Warn("metrics server shutdown")
		}
		cancel()
	}
	if err != nil {
		return err
	}
	return exportSnapshot(eng)
}

func exportSnapshot(eng *pipeline.Engine) error {
	if exportPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(eng.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	data = append(data, '\n')
	if exportPath == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
