// pipeline-consumer polls the file-backed queue for new YouTube URLs and
// drives each one through every pipeline stage until it is delivered,
// fails, or pauses for operator escalation.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reelforge/pipeline/internal/config"
	"github.com/reelforge/pipeline/pkg/agentexec"
	"github.com/reelforge/pipeline/pkg/consumer"
	"github.com/reelforge/pipeline/pkg/crashrecovery"
	"github.com/reelforge/pipeline/pkg/eventbus"
	"github.com/reelforge/pipeline/pkg/eventnotify"
	"github.com/reelforge/pipeline/pkg/modeldispatch"
	"github.com/reelforge/pipeline/pkg/ports"
	"github.com/reelforge/pipeline/pkg/queue"
	"github.com/reelforge/pipeline/pkg/recovery"
	"github.com/reelforge/pipeline/pkg/reflection"
	"github.com/reelforge/pipeline/pkg/resourcemon"
	"github.com/reelforge/pipeline/pkg/sdwatchdog"
	"github.com/reelforge/pipeline/pkg/slackmsg"
	"github.com/reelforge/pipeline/pkg/stageconfig"
	"github.com/reelforge/pipeline/pkg/stagerunner"
	"github.com/reelforge/pipeline/pkg/statestore"
	"github.com/reelforge/pipeline/pkg/throttle"
	"github.com/reelforge/pipeline/pkg/workspace"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting pipeline-consumer")
	log.Printf("Config Directory: %s", *configDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, heartbeat := buildRunner(cfg)
	heartbeat.Start()
	runner.Start(ctx)

	<-ctx.Done()
	slog.Info("shutdown signal received")
	heartbeat.Stop()
	runner.Stop()
}

// buildRunner wires every adapter pkg/consumer.Runner depends on from cfg.
// Messenger and Watchdog are the two optional collaborators: Messenger is
// nil unless Slack is enabled, and Watchdog is always present but is a
// harmless no-op outside a systemd unit with WatchdogSec set. The returned
// Heartbeat runs independently of the pipeline runner's own per-stage
// watchdog ping, so a single long-running agent subprocess can never starve
// systemd's liveness check for the duration of its timeout.
func buildRunner(cfg *config.Config) (*consumer.Runner, *sdwatchdog.Heartbeat) {
	q := queue.New(cfg.Paths.QueueDir)
	if err := q.EnsureDirs(); err != nil {
		log.Fatalf("Failed to initialize queue directories: %v", err)
	}

	workspaces := workspace.New(cfg.Paths.WorkspaceDir)
	store := statestore.New(workspaces.RunsDir())
	stages := stageconfig.New(cfg.Paths.WorkflowsDir)

	agent := agentexec.New(agentexec.Config{
		Command: cfg.Agent.Command,
		Args:    cfg.Agent.Args,
		Timeout: cfg.Agent.Timeout(),
	})

	dispatcher, err := modeldispatch.Dial(cfg.ModelRouter.Addr)
	if err != nil {
		log.Fatalf("Failed to connect to model router at %s: %v", cfg.ModelRouter.Addr, err)
	}

	var messenger ports.Messenger
	if cfg.Slack.Enabled {
		token := os.Getenv(cfg.Slack.TokenEnv)
		if token == "" {
			log.Fatalf("slack.enabled is true but %s is not set", cfg.Slack.TokenEnv)
		}
		messenger = slackmsg.New(slackmsg.Config{Token: token, ChannelID: cfg.Slack.ChannelID})
	}

	events := eventbus.New()
	if messenger != nil {
		eventnotify.Register(events, messenger)
	}

	reflectionLoop := reflection.New(agent, dispatcher).WithMinScoreThreshold(cfg.QA.MinScore)
	recoveryChain := recovery.New(agent, messenger)
	stageRunner := stagerunner.New(reflectionLoop, recoveryChain, events)

	monitor := resourcemon.New()
	throttler := throttle.New(monitor, messenger, throttle.Config{
		MemoryLimitBytes:        uint64(cfg.Resources.MemoryLimitMB) * 1024 * 1024,
		CPULimitPercent:         cfg.Resources.CPULimitPercent,
		TemperatureLimitCelsius: cfg.Resources.TemperatureLimitCelsius,
		CheckInterval:           secondsToDuration(cfg.Resources.CheckIntervalSeconds),
	})

	crash := crashrecovery.New(store, messenger)
	watchdog := sdwatchdog.New()
	heartbeat := sdwatchdog.NewHeartbeat(watchdog)

	runner := consumer.New(consumer.Config{
		Queue:        q,
		Workspaces:   workspaces,
		Store:        store,
		Stages:       stages,
		Agent:        agent,
		StageRunner:  stageRunner,
		Events:       events,
		Throttler:    throttler,
		Crash:        crash,
		Messenger:    messenger,
		Watchdog:     watchdog,
		PollInterval: secondsToDuration(cfg.Queue.PollIntervalSeconds),
		PollJitter:   secondsToDuration(cfg.Queue.PollJitterSeconds),
	})
	return runner, heartbeat
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
