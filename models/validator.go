package models

// PrimeValidator is a consensus participant identified by an assigned
// prime base. Counters and reputation are mutated by round outcomes for
// the lifetime of the engine.
type PrimeValidator struct {
	ID                    string  `json:"id"`
	PublicKey             []byte  `json:"public_key"`
	PrimeBase             uint64  `json:"prime_base"`
	Stake                 uint64  `json:"stake"`
	Reputation            float64 `json:"reputation"` // 0..1
	QuantumScore          int     `json:"quantum_score"`
	TotalValidations      uint64  `json:"total_validations"`
	SuccessfulValidations uint64  `json:"successful_validations"`
	LastActive            int64   `json:"last_active"` // unix seconds
	Active                bool    `json:"active"`
}

// SuccessRate reports the fraction of validations that succeeded, or 0
// before any validation has been recorded.
func (v *PrimeValidator) SuccessRate() float64 {
	if v.TotalValidations == 0 {
		return 0
	}
	return float64(v.SuccessfulValidations) / float64(v.TotalValidations)
}

// ValidatorInfo is the weighted view of a validator handed to the prime
// layer's deterministic selection.
type ValidatorInfo struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// ConsensusRound records one completed round. Never mutated after completion.
type ConsensusRound struct {
	Number        uint64   `json:"number"`
	ValidatorID   string   `json:"validator_id"`
	ValidatedTxs  []string `json:"validated_txs"`
	Reached       bool     `json:"reached"`
	FinalityScore float64  `json:"finality_score"`
	StartedAt     int64    `json:"started_at"` // unix ms
	EndedAt       int64    `json:"ended_at"`   // unix ms
}

// DagConsensusState is owned by the consensus engine and mutated only at
// round completion and fork resolution.
type DagConsensusState struct {
	Height        uint64           `json:"height"`
	TotalTxs      uint64           `json:"total_txs"`
	FinalizedTxs  uint64           `json:"finalized_txs"`
	PendingTxs    uint64           `json:"pending_txs"`
	Rounds        []ConsensusRound `json:"rounds"`
	ForkDetected  bool             `json:"fork_detected"`
	LastFinalized string           `json:"last_finalized"`
}

// ConsensusStats is a read-only snapshot derived from engine state.
type ConsensusStats struct {
	SuccessRate     float64 `json:"success_rate"`
	AvgFinality     float64 `json:"avg_finality"`
	ActiveCount     int     `json:"active_count"`
	AvgReputation   float64 `json:"avg_reputation"`
	ForkDetected    bool    `json:"fork_detected"`
	CompletedRounds int     `json:"completed_rounds"`
}
