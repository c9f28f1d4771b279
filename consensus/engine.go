package consensus

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"primedag/logger"
	"primedag/models"
	"primedag/prime"
)

var (
	ErrValidatorNotFound   = errors.New("validator not found")
	ErrConsensusNotReached = errors.New("consensus not reached")
)

// Validator prime bases start at the 10th prime so the small primes stay
// reserved for timestamp divisibility checks.
const primeBaseOffset = 10

const (
	maxRoundHistory   = 100
	historyDropCount  = 50
	activeWindowSecs  = 300
	reputationReward  = 0.01
	reputationPenalty = 0.005
)

// Config carries the consensus knobs read from the application config.
type Config struct {
	ValidatorCount    int
	BlockTimeMs       int
	FinalityThreshold float64
}

// Engine owns the validator registry and the aggregate consensus state.
// Rounds run one at a time; the registry is mutated only inside a round's
// critical section or through UpdateValidatorReputation.
type Engine struct {
	mu         sync.Mutex
	prime      *prime.Engine
	cfg        Config
	validators map[string]*models.PrimeValidator
	order      []string
	state      models.DagConsensusState
	rng        *rand.Rand

	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewEngine bootstraps the configured number of prime validators. Each
// validator is assigned the (index+10)th prime as its base.
func NewEngine(pe *prime.Engine, cfg Config) *Engine {
	if cfg.ValidatorCount <= 0 {
		cfg.ValidatorCount = 3
	}
	if cfg.BlockTimeMs <= 0 {
		cfg.BlockTimeMs = 1000
	}
	if cfg.FinalityThreshold <= 0 {
		cfg.FinalityThreshold = 0.5
	}

	e := &Engine{
		prime:      pe,
		cfg:        cfg,
		validators: make(map[string]*models.PrimeValidator, cfg.ValidatorCount),
		order:      make([]string, 0, cfg.ValidatorCount),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	now := time.Now().Unix()
	for i := 0; i < cfg.ValidatorCount; i++ {
		pub := make([]byte, 32)
		e.rng.Read(pub)
		id := fmt.Sprintf("validator-%02d", i+1)
		e.validators[id] = &models.PrimeValidator{
			ID:           id,
			PublicKey:    pub,
			PrimeBase:    pe.NthPrime(i + primeBaseOffset),
			Stake:        uint64(1000 * (i + 1)),
			Reputation:   0.5,
			QuantumScore: 80 + e.rng.Intn(20),
			LastActive:   now,
			Active:       true,
		}
		e.order = append(e.order, id)
	}
	return e
}

// Start launches the round loop. A second Start while running is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	e.mu.Unlock()

	e.wg.Add(1)
	go e.roundLoop()
	logger.Logger.Info("consensus engine started",
		zap.Int("validators", e.cfg.ValidatorCount),
		zap.Int("block_time_ms", e.cfg.BlockTimeMs))
}

// Stop requests shutdown and waits for the in-flight round to complete.
// The flag is checked once per loop iteration; rounds are not preempted.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stop)
	e.mu.Unlock()

	e.wg.Wait()
	logger.Logger.Info("consensus engine stopped")
}

// roundLoop runs rounds back to back with a block-time sleep between
// them. Round failures are logged and the loop moves on.
func (e *Engine) roundLoop() {
	defer e.wg.Done()

	interval := time.Duration(e.cfg.BlockTimeMs) * time.Millisecond
	round := uint64(1)
	for {
		select {
		case <-e.stop:
			return
		default:
		}

		if _, err := e.RunConsensusRound(round); err != nil {
			logger.Logger.Error("consensus round failed",
				zap.Uint64("round", round), zap.Error(err))
		}
		round++

		timer := time.NewTimer(interval)
		select {
		case <-e.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// UpdateValidatorReputation applies a reputation delta, clamped to
// [0, 1], and refreshes the validator's last-active timestamp.
func (e *Engine) UpdateValidatorReputation(id string, delta float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.validators[id]
	if !ok {
		return ErrValidatorNotFound
	}
	v.Reputation = clamp01(v.Reputation + delta)
	v.LastActive = time.Now().Unix()
	return nil
}

// GetValidator returns a copy of the validator with the given id.
func (e *Engine) GetValidator(id string) (*models.PrimeValidator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.validators[id]
	if !ok {
		return nil, ErrValidatorNotFound
	}
	clone := *v
	clone.PublicKey = append([]byte(nil), v.PublicKey...)
	return &clone, nil
}

// GetValidators returns copies of all validators in bootstrap order.
func (e *Engine) GetValidators() []*models.PrimeValidator {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.PrimeValidator, 0, len(e.order))
	for _, id := range e.order {
		v := e.validators[id]
		clone := *v
		clone.PublicKey = append([]byte(nil), v.PublicKey...)
		out = append(out, &clone)
	}
	return out
}

// GetConsensusState returns a snapshot of the engine's aggregate state.
func (e *Engine) GetConsensusState() models.DagConsensusState {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := e.state
	snapshot.Rounds = append([]models.ConsensusRound(nil), e.state.Rounds...)
	return snapshot
}

// GetConsensusStats derives aggregate statistics from round history and
// the validator registry.
func (e *Engine) GetConsensusStats() models.ConsensusStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := models.ConsensusStats{
		ForkDetected:    e.state.ForkDetected,
		CompletedRounds: len(e.state.Rounds),
	}

	reached := 0
	var finalitySum float64
	for _, r := range e.state.Rounds {
		if r.Reached {
			reached++
		}
		finalitySum += r.FinalityScore
	}
	if len(e.state.Rounds) > 0 {
		stats.SuccessRate = float64(reached) / float64(len(e.state.Rounds))
		stats.AvgFinality = finalitySum / float64(len(e.state.Rounds))
	}

	var repSum float64
	for _, v := range e.validators {
		if v.Active {
			stats.ActiveCount++
		}
		repSum += v.Reputation
	}
	if len(e.validators) > 0 {
		stats.AvgReputation = repSum / float64(len(e.validators))
	}
	return stats
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
