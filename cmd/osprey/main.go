package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ospreygo/netsync/internal/config"
	coresys "github.com/ospreygo/netsync/internal/core/system"
	"github.com/ospreygo/netsync/internal/data"
	"github.com/ospreygo/netsync/internal/handler"
	gonet "github.com/ospreygo/netsync/internal/net"
	"github.com/ospreygo/netsync/internal/scripting"
	"github.com/ospreygo/netsync/internal/sim"
	"github.com/ospreygo/netsync/internal/systems"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

func run() error {
	serverMode := flag.Bool("server", false, "run as the authoritative server")
	flag.Parse()

	// 1. Load config
	cfgPath := "config/osprey.toml"
	if p := os.Getenv("OSPREY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	role := sim.RoleClient
	if *serverMode {
		role = sim.RoleServer
	}

	// 3. Simulation state and entity archetypes
	state := sim.NewState(role)

	luaEngine, err := scripting.NewEngine(cfg.Server.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK(fmt.Sprintf("loaded %d entity archetypes", luaEngine.Count()))

	spawner := sim.NewSpawner(state, luaEngine, log)

	// 4. Transport
	bridge := gonet.NewBridge(cfg.Network.OutQueueSize, cfg.Network.InQueueSize, log)

	deps := &handler.Deps{
		Cfg:     cfg,
		Log:     log,
		State:   state,
		Spawner: spawner,
		Bridge:  bridge,
	}

	var shutdownNet func()
	if *serverMode {
		srv, err := gonet.NewServer(cfg.Network.BindAddress, cfg.Network.SessionQueueSize, cfg.Network.WriteTimeout, bridge, log)
		if err != nil {
			return fmt.Errorf("net server: %w", err)
		}
		srv.Start()
		deps.Binder = srv
		shutdownNet = srv.Close
		printReady(fmt.Sprintf("listening on %s", srv.Addr()))
	} else {
		cli := gonet.NewClient(cfg.Network.ConnectAddress, cfg.Network.WriteTimeout, bridge, log)
		deps.Redial = cli.Dial
		deps.TransportAlive = cli.Alive
		shutdownNet = cli.Close
		printReady(fmt.Sprintf("connecting to %s", cfg.Network.ConnectAddress))
	}

	// 5. Systems and handlers in phase order
	runner := coresys.NewRunner()
	runner.Register(systems.NewEvents(state.Bus))
	runner.Register(handler.NewConnection(deps))
	runner.Register(systems.NewPlayerSpawn(state, spawner, log))
	runner.Register(systems.NewMovement(state))
	runner.Register(handler.NewReplication(deps))
	runner.Register(handler.NewChat(deps))
	runner.Register(handler.NewInput(deps))
	runner.Register(systems.NewCleanup(state.World))

	// 6. Seed the world from the spawn list (server only)
	if *serverMode {
		count, err := seedSpawns(cfg.Server.SpawnList, spawner)
		if err != nil {
			return fmt.Errorf("seed spawns: %w", err)
		}
		printOK(fmt.Sprintf("seeded %d entities", count))
	}

	// 7. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printReady(fmt.Sprintf("simulation loop started (tick: %s)", cfg.Simulation.TickRate))

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			shutdownNet()
			log.Info("stopped")
			return nil
		}
	}
}

// seedSpawns places the pre-configured server-owned entities.
func seedSpawns(path string, spawner *sim.Spawner) (int, error) {
	entries, err := data.LoadSpawnList(path)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		for i := 0; i < entry.Count; i++ {
			tf := sim.DefaultTransform()
			tf.Pos = entry.Position(i)
			if _, err := spawner.Spawn(entry.Kind, uuid.New(), uuid.Nil, tf, false); err != nil {
				return count, fmt.Errorf("spawn %s: %w", entry.Kind, err)
			}
			count++
		}
	}
	return count, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
