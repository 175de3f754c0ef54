package cli

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/pkg/adapters/file"
	loamAdapter "github.com/aretw0/switchboard/pkg/adapters/loam"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/adapters/redis"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/persistence/middleware"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/providers"
)

// lockPrefix namespaces the per-conversation locks in Redis.
const lockPrefix = "switchboard:lock:"

// Setup is an engine together with the resources it owns.
type Setup struct {
	Engine *switchboard.Engine
	// Loader is set when flows come from a Loam repository.
	Loader *loamAdapter.Loader

	closers []func() error
	logger  *slog.Logger
}

// Close releases the session backend.
func (s *Setup) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			s.logger.Warn("close failed", "err", err)
		}
	}
}

// CreateEngine builds an engine with the CLI conventions: sessions in memory
// unless a Redis address is given, actions from an actions file with the
// builtins as fallback, flows imported from a file or directory.
func CreateEngine(ctx context.Context, opts EngineOptions, logger *slog.Logger, hooks domain.LifecycleHooks) (*Setup, error) {
	setup := &Setup{logger: logger}

	store, locker, err := setup.createStore(ctx, opts)
	if err != nil {
		setup.Close()
		return nil, err
	}

	provider, err := createProvider(opts.ActionsPath, logger)
	if err != nil {
		setup.Close()
		return nil, err
	}

	engineOpts := []switchboard.Option{
		switchboard.WithStore(store),
		switchboard.WithProvider(provider),
		switchboard.WithLogger(logger),
		switchboard.WithLifecycleHooks(hooks),
		switchboard.WithHandoffMessage(opts.HandoffMessage),
		switchboard.WithHandoffActions(providers.TransferToAgent),
	}
	if opts.StepBudget > 0 {
		engineOpts = append(engineOpts, switchboard.WithStepBudget(opts.StepBudget))
	}
	if opts.DecisionRetries > 0 {
		engineOpts = append(engineOpts, switchboard.WithDecisionRetries(opts.DecisionRetries))
	}
	if opts.ActionRetries > 0 {
		engineOpts = append(engineOpts, switchboard.WithActionRetries(opts.ActionRetries))
	}
	if opts.ActionTimeout > 0 {
		engineOpts = append(engineOpts, switchboard.WithActionTimeout(opts.ActionTimeout))
	}
	if locker != nil {
		engineOpts = append(engineOpts,
			switchboard.WithLocker(locker),
			switchboard.WithLockTTL(opts.LockTTL),
		)
	}
	setup.Engine = switchboard.New(engineOpts...)

	if err := setup.importFlows(ctx, opts); err != nil {
		setup.Close()
		return nil, err
	}
	if opts.Activate != "" {
		if err := setup.Engine.Activate(opts.Activate); err != nil {
			setup.Close()
			return nil, err
		}
	}
	return setup, nil
}

func (s *Setup) importFlows(ctx context.Context, opts EngineOptions) error {
	info, err := os.Stat(opts.FlowsPath)
	if err != nil {
		return fmt.Errorf("flows: %w", err)
	}

	if !info.IsDir() {
		def, err := file.ReadFile(opts.FlowsPath)
		if err != nil {
			return err
		}
		if def.ID == "" {
			def.ID = trimExt(filepath.Base(opts.FlowsPath))
		}
		id, _, err := s.Engine.Publish(def)
		if err != nil {
			return err
		}
		return s.Engine.Activate(id)
	}

	var source ports.FlowSource = file.NewSource(opts.FlowsPath)
	if opts.Loam {
		loader, err := loamAdapter.Open(opts.FlowsPath)
		if err != nil {
			return err
		}
		s.Loader = loader
		source = loader
	}

	n, err := s.Engine.Import(ctx, source)
	s.logger.Info("flows imported", "path", opts.FlowsPath, "count", n)
	return err
}

// Reload publishes one flow again from the Loam repository.
func (s *Setup) Reload(ctx context.Context, id string) error {
	if s.Loader == nil {
		return errors.New("reload requires a loam repository")
	}
	def, err := s.Loader.LoadFlow(ctx, id)
	if err != nil {
		return err
	}
	_, version, err := s.Engine.Publish(def)
	if err != nil {
		return err
	}
	s.logger.Info("flow reloaded", "flow_id", id, "version", version)
	return nil
}

func (s *Setup) createStore(ctx context.Context, opts EngineOptions) (ports.SessionStore, ports.DistributedLocker, error) {
	var (
		store  ports.SessionStore
		locker ports.DistributedLocker
	)
	if opts.RedisAddr == "" {
		store = memory.NewStore()
	} else {
		var redisOpts []redis.Option
		if opts.SessionTTL > 0 {
			redisOpts = append(redisOpts, redis.WithTTL(opts.SessionTTL))
		}
		rs := redis.New(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, redisOpts...)
		s.closers = append(s.closers, rs.Close)
		if err := rs.Client().Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis %s: %w", opts.RedisAddr, err)
		}
		store = rs
		locker = redis.NewLocker(rs.Client(), lockPrefix)
		s.logger.Info("using redis session store", "addr", opts.RedisAddr, "db", opts.RedisDB, "ttl", opts.SessionTTL)
	}

	var mws []middleware.Middleware
	if len(opts.MaskVars) > 0 {
		mw, err := middleware.NewPIIMiddleware(opts.MaskVars)
		if err != nil {
			return nil, nil, err
		}
		mws = append(mws, mw)
	}
	if opts.EncryptionKey != "" {
		key, err := decodeKey(opts.EncryptionKey)
		if err != nil {
			return nil, nil, fmt.Errorf("encryption key: %w", err)
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, nil, fmt.Errorf("encryption key: %w", err)
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), locker, nil
}

func createProvider(actionsPath string, logger *slog.Logger) (ports.ActionProvider, error) {
	cfg, err := providers.LoadConfig(actionsPath)
	if err != nil {
		return nil, err
	}
	funcs := providers.NewFuncs()
	providers.RegisterBuiltins(funcs, logger)

	router, err := providers.Build(cfg, filepath.Dir(actionsPath), funcs)
	if err != nil {
		return nil, err
	}
	if len(cfg.Actions) > 0 {
		logger.Info("actions configured", "path", actionsPath, "count", len(cfg.Actions))
	}
	return router, nil
}

func decodeKey(raw string) ([]byte, error) {
	if key, err := hex.DecodeString(raw); err == nil {
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return key, nil
	}
	return nil, errors.New("neither hex nor base64")
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

// OpenSessionStore opens the session backend alone, with the same
// middleware the engine would use.
func OpenSessionStore(ctx context.Context, opts EngineOptions, logger *slog.Logger) (ports.SessionStore, func(), error) {
	s := &Setup{logger: logger}
	store, _, err := s.createStore(ctx, opts)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return store, s.Close, nil
}
