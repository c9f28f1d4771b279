package consensus

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"primedag/logger"
	"primedag/models"
	"primedag/prime"
)

const (
	slotsPerRound     = 10
	combinedThreshold = 0.7
)

// RunConsensusRound executes one full round: weigh the active
// validators, deterministically select one, score up to ten transaction
// slots against it, compute the finality score, and fold the outcome
// into the consensus state. The whole round runs inside one critical
// section so it cannot be partially observed.
func (e *Engine) RunConsensusRound(round uint64) (*models.ConsensusRound, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	infos := make([]models.ValidatorInfo, 0, len(e.order))
	for _, id := range e.order {
		v := e.validators[id]
		if !v.Active {
			continue
		}
		infos = append(infos, models.ValidatorInfo{ID: id, Weight: e.validatorWeight(v)})
	}

	idx, err := e.prime.SelectValidator(infos, round)
	if err != nil {
		return nil, fmt.Errorf("select validator for round %d: %w", round, err)
	}
	selected := e.validators[infos[idx].ID]

	var validated []string
	for slot := 0; slot < slotsPerRound; slot++ {
		txID := uuid.NewString()
		if e.scoreSlot(txID, selected) >= combinedThreshold {
			e.recordOutcome(selected, true)
			validated = append(validated, txID)
		} else {
			e.recordOutcome(selected, false)
		}
	}

	durationMs := float64(time.Since(start).Milliseconds())
	if durationMs < 1 {
		durationMs = 1
	}
	finality := 0.4*clamp01(float64(len(validated))/slotsPerRound) +
		0.3*selected.Reputation +
		0.3*clamp01(1000/durationMs)
	reached := finality >= e.cfg.FinalityThreshold

	if reached {
		e.state.Height++
		e.state.FinalizedTxs++
		if len(validated) > 0 {
			e.state.LastFinalized = validated[len(validated)-1]
		}
	} else {
		e.state.PendingTxs++
	}
	e.state.TotalTxs += uint64(len(validated))

	record := models.ConsensusRound{
		Number:        round,
		ValidatorID:   selected.ID,
		ValidatedTxs:  validated,
		Reached:       reached,
		FinalityScore: finality,
		StartedAt:     start.UnixMilli(),
		EndedAt:       time.Now().UnixMilli(),
	}
	e.state.Rounds = append(e.state.Rounds, record)
	if len(e.state.Rounds) > maxRoundHistory {
		e.state.Rounds = append([]models.ConsensusRound(nil), e.state.Rounds[historyDropCount:]...)
	}

	logger.Logger.Debug("consensus round completed",
		zap.Uint64("round", round),
		zap.String("validator", selected.ID),
		zap.Int("validated", len(validated)),
		zap.Float64("finality", finality),
		zap.Bool("reached", reached))
	return &record, nil
}

// validatorWeight combines stake, prime base, reputation, quantum score,
// historical success rate, and a recent-activity bonus.
func (e *Engine) validatorWeight(v *models.PrimeValidator) float64 {
	weight := float64(v.Stake) +
		float64(v.PrimeBase)*100 +
		v.Reputation*1000 +
		float64(v.QuantumScore)*10
	if v.TotalValidations > 0 {
		weight += v.SuccessRate() * 500
	}
	if time.Now().Unix()-v.LastActive <= activeWindowSecs {
		weight += 200
	}
	return weight
}

// scoreSlot averages the prime-congruence score and the quantum
// validation score for one transaction slot.
func (e *Engine) scoreSlot(txID string, v *models.PrimeValidator) float64 {
	hashInt := binary.BigEndian.Uint64(e.prime.PrimeHash([]byte(txID))[:8])

	congruence := 0.2
	if v.PrimeBase > 0 && hashInt%v.PrimeBase == 0 {
		congruence = 0.4
	}
	primeScore := congruence + 0.3*v.Reputation + 0.3*float64(v.QuantumScore)/100

	factorCount := len(prime.PrimeFactors(hashInt))
	quantumScore := 0.0
	if factorCount > 0 {
		quantumScore = clamp01(math.Log2(float64(factorCount)) / 10)
	}

	return (primeScore + quantumScore) / 2
}

// recordOutcome is the only mutation path for validation counters and
// round-driven reputation changes.
func (e *Engine) recordOutcome(v *models.PrimeValidator, success bool) {
	v.TotalValidations++
	if success {
		v.SuccessfulValidations++
		v.Reputation = clamp01(v.Reputation + reputationReward)
		v.LastActive = time.Now().Unix()
		return
	}
	v.Reputation = clamp01(v.Reputation - reputationPenalty)
}
