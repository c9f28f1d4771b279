package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"primedag/models"
	"primedag/prime"
)

func testEngine(t *testing.T, validators int) *Engine {
	t.Helper()
	return NewEngine(prime.NewEngine(128), Config{
		ValidatorCount:    validators,
		BlockTimeMs:       100,
		FinalityThreshold: 0.5,
	})
}

func TestNewEngineBootstrap(t *testing.T) {
	e := testEngine(t, 3)

	vals := e.GetValidators()
	require.Len(t, vals, 3)

	// Prime bases start at the 10th prime: 31, 37, 41.
	assert.Equal(t, uint64(31), vals[0].PrimeBase)
	assert.Equal(t, uint64(37), vals[1].PrimeBase)
	assert.Equal(t, uint64(41), vals[2].PrimeBase)

	for i, v := range vals {
		assert.True(t, v.Active)
		assert.Equal(t, uint64(1000*(i+1)), v.Stake)
		assert.Equal(t, 0.5, v.Reputation)
		assert.GreaterOrEqual(t, v.QuantumScore, 80)
		assert.Less(t, v.QuantumScore, 100)
	}
}

func TestRunConsensusRound(t *testing.T) {
	e := testEngine(t, 3)

	record, err := e.RunConsensusRound(1)
	require.NoError(t, err)

	state := e.GetConsensusState()
	require.Len(t, state.Rounds, 1)
	assert.Equal(t, uint64(1), state.Rounds[0].Number)

	if record.FinalityScore >= 0.5 {
		assert.True(t, record.Reached)
		assert.Equal(t, uint64(1), state.Height)
	} else {
		assert.False(t, record.Reached)
		assert.Equal(t, uint64(0), state.Height)
		assert.Equal(t, uint64(1), state.PendingTxs)
	}
	assert.Equal(t, uint64(len(record.ValidatedTxs)), state.TotalTxs)
}

func TestRunConsensusRoundNoActiveValidators(t *testing.T) {
	e := testEngine(t, 2)
	for _, v := range e.validators {
		v.Active = false
	}

	_, err := e.RunConsensusRound(1)
	assert.ErrorIs(t, err, prime.ErrNoValidators)
	assert.Empty(t, e.GetConsensusState().Rounds)
}

func TestRoundHistoryBounded(t *testing.T) {
	e := testEngine(t, 3)

	for round := uint64(1); round <= 250; round++ {
		_, err := e.RunConsensusRound(round)
		require.NoError(t, err)
		require.LessOrEqual(t, len(e.state.Rounds), maxRoundHistory)
	}

	// Round numbers stay strictly increasing across the trims.
	rounds := e.GetConsensusState().Rounds
	for i := 1; i < len(rounds); i++ {
		assert.Greater(t, rounds[i].Number, rounds[i-1].Number)
	}
}

func TestHandleFork(t *testing.T) {
	e := testEngine(t, 3)

	assert.False(t, e.HandleFork(), "fewer than three rounds")

	e.state.Rounds = []models.ConsensusRound{
		{Number: 1, ValidatorID: "validator-01"},
		{Number: 2, ValidatorID: "validator-02"},
		{Number: 3, ValidatorID: "validator-01"},
	}
	assert.False(t, e.HandleFork(), "repeated leader is not a fork")

	e.state.Rounds = []models.ConsensusRound{
		{Number: 1, ValidatorID: "validator-01"},
		{Number: 2, ValidatorID: "validator-02"},
		{Number: 3, ValidatorID: "validator-03"},
	}
	assert.True(t, e.HandleFork())

	// The flag is cleared again after resolution.
	assert.False(t, e.GetConsensusState().ForkDetected)
}

func TestUpdateValidatorReputation(t *testing.T) {
	e := testEngine(t, 2)

	require.NoError(t, e.UpdateValidatorReputation("validator-01", 2.0))
	v, err := e.GetValidator("validator-01")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Reputation)

	require.NoError(t, e.UpdateValidatorReputation("validator-01", -5.0))
	v, err = e.GetValidator("validator-01")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Reputation)

	assert.ErrorIs(t, e.UpdateValidatorReputation("validator-99", 0.1), ErrValidatorNotFound)
}

func TestGetConsensusStats(t *testing.T) {
	e := testEngine(t, 3)

	for round := uint64(1); round <= 5; round++ {
		_, err := e.RunConsensusRound(round)
		require.NoError(t, err)
	}

	stats := e.GetConsensusStats()
	assert.Equal(t, 5, stats.CompletedRounds)
	assert.Equal(t, 3, stats.ActiveCount)
	assert.GreaterOrEqual(t, stats.SuccessRate, 0.0)
	assert.LessOrEqual(t, stats.SuccessRate, 1.0)
	assert.GreaterOrEqual(t, stats.AvgReputation, 0.0)
	assert.LessOrEqual(t, stats.AvgReputation, 1.0)
}

func TestStartStop(t *testing.T) {
	e := NewEngine(prime.NewEngine(128), Config{
		ValidatorCount:    3,
		BlockTimeMs:       10,
		FinalityThreshold: 0.5,
	})

	e.Start()
	e.Start() // second start is a no-op

	time.Sleep(50 * time.Millisecond)
	e.Stop()
	e.Stop() // second stop is a no-op

	// The loop ran at least one full round before the stop took effect.
	assert.NotEmpty(t, e.GetConsensusState().Rounds)
}
