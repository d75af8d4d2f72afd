package bot

import (
	"context"
	"fmt"
	"time"

	"arbengine/internal/models"
	"arbengine/pkg/retry"
	"arbengine/pkg/utils"
)

// Supervisor instantiates and runs one AEE per configured pair,
// restarting it with exponential backoff whenever a run ends in an
// error: a recovered panic, or an error Engine.Run returns (a failed
// stream subscription or initial position load). Order-send and
// persistence failures are handled inside the loop and never escape.
type Supervisor struct {
	cfg        models.PairConfig
	newEngine  func() *Engine
	restartCfg retry.Config
	log        *utils.Logger
}

// NewSupervisor wires a supervisor for one pair. newEngine must build a
// fresh Engine (and, transitively, fresh AEEState) on every call, since
// a crashed engine's in-memory state cannot be trusted for reuse.
func NewSupervisor(cfg models.PairConfig, newEngine func() *Engine) *Supervisor {
	restartCfg := retry.NetworkConfig()
	restartCfg.MaxRetries = 0 // restart indefinitely; only ctx cancellation stops a pair
	return &Supervisor{
		cfg:        cfg,
		newEngine:  newEngine,
		restartCfg: restartCfg,
		log:        utils.L().WithComponent("supervisor").WithPairID(cfg.ID),
	}
}

// Run blocks until ctx is canceled, restarting the underlying engine
// each time it returns an error (including a recovered panic).
func (s *Supervisor) Run(ctx context.Context) {
	cfg := s.restartCfg
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		SupervisorRestarts.WithLabelValues(s.cfg.BotID()).Inc()
		s.log.Error("AEE crashed, restarting",
			utils.Int("attempt", attempt), utils.Err(err), utils.Latency(float64(delay.Milliseconds())))
	}

	err := retry.Do(ctx, func() error { return s.runOnce(ctx) }, cfg)
	if err != nil && ctx.Err() == nil {
		s.log.Error("supervisor gave up restarting pair", utils.Err(err))
	}
}

// runOnce builds a fresh engine and runs it, converting a panic into an
// error so retry.Do can drive the restart backoff.
func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aee panic: %v", r)
		}
	}()
	engine := s.newEngine()
	return engine.Run(ctx)
}
