package consensus

import (
	"go.uber.org/zap"

	"primedag/logger"
)

// HandleFork inspects the last three completed rounds. Three distinct
// leaders in a row flags a fork; the highest-weighted of the three is
// logged as the winner and the flag is cleared. No graph reorganization
// is performed.
func (e *Engine) HandleFork() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.state.Rounds)
	if n < 3 {
		return false
	}

	last := e.state.Rounds[n-3:]
	if last[0].ValidatorID == last[1].ValidatorID ||
		last[1].ValidatorID == last[2].ValidatorID ||
		last[0].ValidatorID == last[2].ValidatorID {
		return false
	}

	e.state.ForkDetected = true

	winner := last[0].ValidatorID
	best := -1.0
	for _, r := range last {
		v, ok := e.validators[r.ValidatorID]
		if !ok {
			continue
		}
		if w := e.validatorWeight(v); w > best {
			best = w
			winner = r.ValidatorID
		}
	}
	logger.Logger.Warn("fork detected across last three rounds",
		zap.String("winner", winner),
		zap.Float64("winner_weight", best))

	e.state.ForkDetected = false
	return true
}
