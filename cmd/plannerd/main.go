// Package main provides the planner daemon binary. It loads the robot model
// and planner configuration tables, warm-starts multi-query planners from
// persisted roadmaps, and persists them again on shutdown.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/roboplan/roboplan/internal/config"
	"github.com/roboplan/roboplan/internal/observability"
	"github.com/roboplan/roboplan/internal/planning"
	"github.com/roboplan/roboplan/internal/planning/configload"
	"github.com/roboplan/roboplan/internal/planning/motion"
	"github.com/roboplan/roboplan/internal/planning/selectionscript"
	"github.com/roboplan/roboplan/internal/server"
	"github.com/roboplan/roboplan/internal/storage/postgres"
	"github.com/roboplan/roboplan/internal/storage/roadmap"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting planner daemon",
		zap.String("robot", cfg.Robot.Name),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	// Load robot model
	modelStart := time.Now()
	model, err := motion.LoadStaticModelFromFile(cfg.Robot.GroupsFile)
	if err != nil {
		logger.Fatal("loading robot groups", zap.Error(err))
	}
	logger.Info("robot model loaded",
		zap.String("robot", model.Name()),
		zap.Int("groups", len(model.Groups)),
		zap.Duration("elapsed", time.Since(modelStart)),
	)

	// Select the roadmap store backend
	var store roadmap.Store
	var pool *postgres.Pool
	switch cfg.Storage.Backend {
	case "postgres":
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewRoadmapStore(pool.DB())
	default:
		store = roadmap.NewFileStore()
	}

	limits := planning.Limits{
		MaxGoalSamples:           cfg.Limits.MaxGoalSamples,
		MaxStateSamplingAttempts: cfg.Limits.MaxStateSamplingAttempts,
		MaxGoalSamplingAttempts:  cfg.Limits.MaxGoalSamplingAttempts,
		MaxPlanningThreads:       cfg.Limits.MaxPlanningThreads,
		MaxSolutionSegmentLength: cfg.Limits.MaxSolutionSegmentLength,
		MinWaypointCount:         cfg.Limits.MinWaypointCount,
	}

	// Optional Lua selection policy, shared across pipelines.
	var policy *selectionscript.Policy
	if cfg.Planning.SelectionScript != "" {
		policy, err = selectionscript.LoadFile(
			cfg.Planning.SelectionScript,
			cfg.Planning.SelectionScriptInstructionLimit,
			logger,
		)
		if err != nil {
			logger.Fatal("loading selection script", zap.Error(err))
		}
		logger.Info("selection policy loaded",
			zap.String("script", cfg.Planning.SelectionScript),
		)
	}

	// The solver backend is attached by the embedding integration; the
	// daemon manages configuration, allocation, and persistence.
	newManager := func(pipeline, defaultID string, table map[string]planning.Configuration) *planning.Manager {
		mgr := planning.NewManager(model, nil, store, logger, planning.Options{
			CacheCapacity:    cfg.Planning.CacheCapacity,
			DefaultPlannerID: defaultID,
			Limits:           &limits,
		})
		if err := mgr.RegisterDefaultPlanners(nil); err != nil {
			logger.Fatal("registering planners", zap.String("pipeline", pipeline), zap.Error(err))
		}
		if err := mgr.RegisterDefaultStateSpaces(); err != nil {
			logger.Fatal("registering state spaces", zap.String("pipeline", pipeline), zap.Error(err))
		}
		if policy != nil {
			mgr.SetSelectionScoreHook(policy.Hook())
		}
		if err := mgr.SetPlannerConfigurations(table); err != nil {
			logger.Fatal("installing planner configurations", zap.String("pipeline", pipeline), zap.Error(err))
		}
		logger.Info("planner configurations loaded",
			zap.String("pipeline", pipeline),
			zap.Int("count", len(table)),
		)
		return mgr
	}

	// One manager per declared pipeline, or a single default pipeline fed
	// from the planning config directory.
	managers := make(map[string]*planning.Manager)
	if len(cfg.Planning.Pipelines) > 0 {
		for _, name := range cfg.PipelineNames() {
			pipeline := cfg.Planning.Pipelines[name]
			table, err := configload.LoadFromFile(pipeline.ConfigFile)
			if err != nil {
				logger.Fatal("loading planner configurations",
					zap.String("pipeline", name), zap.Error(err))
			}
			defaultID := pipeline.DefaultPlannerID
			if defaultID == "" {
				defaultID = cfg.Planning.DefaultPlannerID
			}
			managers[name] = newManager(name, defaultID, table)
		}
	} else {
		table, err := configload.LoadFromDir(cfg.Planning.ConfigDir)
		if err != nil {
			logger.Fatal("loading planner configurations", zap.Error(err))
		}
		managers["default"] = newManager("default", cfg.Planning.DefaultPlannerID, table)
	}

	// Warm-start multi-query planners so roadmaps are loaded before the
	// first request arrives. Each named configuration is warmed in every
	// pipeline that defines it.
	for _, name := range cfg.Planning.WarmStartConfigs {
		warmed := false
		for pipelineName, mgr := range managers {
			if _, ok := mgr.PlannerConfigurations()[name]; !ok {
				continue
			}
			warmStart := time.Now()
			pc, err := mgr.ResolveContextByName(ctx, name, "")
			if err != nil {
				logger.Fatal("warm-starting configuration",
					zap.String("pipeline", pipelineName),
					zap.String("config", name), zap.Error(err))
			}
			mgr.ReleaseContext(pc)
			warmed = true
			logger.Info("configuration warm-started",
				zap.String("pipeline", pipelineName),
				zap.String("config", name),
				zap.Duration("elapsed", time.Since(warmStart)),
			)
		}
		if !warmed {
			logger.Fatal("warm-start configuration not defined by any pipeline",
				zap.String("config", name))
		}
	}

	// Wire lifecycle. The pool is added first so reverse-order shutdown
	// persists roadmaps before the database connection closes.
	lifecycle := server.NewLifecycle(logger)

	if pool != nil {
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				for {
					time.Sleep(30 * time.Second)
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			},
			StopFn: func() {
				pool.Close()
			},
		})
	}

	stop := make(chan struct{})
	lifecycle.Add("planner", &server.FuncService{
		StartFn: func() error {
			<-stop
			return nil
		},
		StopFn: func() {
			for name, mgr := range managers {
				if err := mgr.Shutdown(context.Background()); err != nil {
					logger.Error("persisting roadmaps at shutdown",
						zap.String("pipeline", name), zap.Error(err))
				}
			}
			if policy != nil {
				policy.Close()
			}
			close(stop)
		},
	})

	logger.Info("planner daemon initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Int("pipelines", len(managers)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("daemon error", zap.Error(err))
	}
}
