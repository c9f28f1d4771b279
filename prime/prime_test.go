package prime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"primedag/models"
	"primedag/prime"
)

func naiveIsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	for d := uint64(2); d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return true
}

func TestNthPrime(t *testing.T) {
	e := prime.NewEngine(128)

	want := []uint64{2, 3, 5, 7}
	for i, p := range want {
		assert.Equal(t, p, e.NthPrime(i))
	}

	// 999 is the last seeded index; 1000 forces a cache extension.
	assert.Equal(t, uint64(7919), e.NthPrime(999))
	assert.Equal(t, uint64(7927), e.NthPrime(1000))
}

func TestIsPrimeAgreesWithTrialDivision(t *testing.T) {
	for n := uint64(0); n <= 10000; n++ {
		if prime.IsPrime(n) != naiveIsPrime(n) {
			t.Fatalf("IsPrime(%d) = %v, want %v", n, prime.IsPrime(n), naiveIsPrime(n))
		}
	}
}

func TestPrimeHashIsPure(t *testing.T) {
	e := prime.NewEngine(128)

	input := []byte("prime dag transaction")
	first := e.PrimeHash(input)
	require.Len(t, first, 8)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.PrimeHash(input))
	}

	assert.NotEqual(t, first, e.PrimeHash([]byte("another transaction")))
}

func TestPrimeFactors(t *testing.T) {
	assert.Equal(t, []uint64{2, 2, 2, 3, 3, 5}, prime.PrimeFactors(360))
	assert.Equal(t, []uint64{97}, prime.PrimeFactors(97))
	assert.Empty(t, prime.PrimeFactors(1))

	product := uint64(1)
	for _, f := range prime.PrimeFactors(123456) {
		assert.True(t, prime.IsPrime(f))
		product *= f
	}
	assert.Equal(t, uint64(123456), product)
}

func TestQuantumResistanceScoreRange(t *testing.T) {
	for _, level := range []int{1, 64, 128, 256} {
		score := prime.NewEngine(level).QuantumResistanceScore()
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestSelectValidatorDeterministic(t *testing.T) {
	e := prime.NewEngine(128)
	infos := []models.ValidatorInfo{
		{ID: "a", Weight: 1200},
		{ID: "b", Weight: 3400},
		{ID: "c", Weight: 900},
	}

	first, err := e.SelectValidator(infos, 42)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		idx, err := e.SelectValidator(infos, 42)
		require.NoError(t, err)
		assert.Equal(t, first, idx)
	}
}

func TestSelectValidatorEmpty(t *testing.T) {
	e := prime.NewEngine(128)
	_, err := e.SelectValidator(nil, 1)
	assert.ErrorIs(t, err, prime.ErrNoValidators)
}

func evenTimestamp() int64 {
	ts := time.Now().Unix()
	return ts - ts%2
}

func testTransaction(e *prime.Engine) *models.Transaction {
	sig := make([]byte, 256)
	for i := range sig {
		sig[i] = byte(i)
	}
	id := "e2b1c3d4-0000-4000-8000-000000000001"
	ts := evenTimestamp()
	return &models.Transaction{
		ID:        id,
		Sender:    []byte("alice"),
		Receiver:  []byte("bob"),
		Amount:    42,
		Nonce:     7,
		Timestamp: ts,
		Signature: sig,
		Metadata:  []byte("memo"),
		QuantumProof: models.QuantumProof{
			PrimeHash:       e.PrimeHash([]byte(id)),
			ResistanceScore: 50,
			Timestamp:       ts,
		},
	}
}

func TestValidateTransaction(t *testing.T) {
	e := prime.NewEngine(128)

	tx := testTransaction(e)
	require.NoError(t, e.ValidateTransaction(tx))
}

func TestValidateTransactionHashMismatch(t *testing.T) {
	e := prime.NewEngine(128)

	tx := testTransaction(e)
	tx.QuantumProof.PrimeHash[0] ^= 0xff
	assert.ErrorIs(t, e.ValidateTransaction(tx), prime.ErrInvalidPrimeHash)
}

func TestValidateTransactionOverclaimedResistance(t *testing.T) {
	e := prime.NewEngine(128)

	tx := testTransaction(e)
	tx.Signature = []byte("aaaaaaaa") // zero entropy
	tx.QuantumProof.ResistanceScore = 100
	assert.ErrorIs(t, e.ValidateTransaction(tx), prime.ErrInsufficientResistance)
}

func TestValidateTransactionBadTimestamp(t *testing.T) {
	e := prime.NewEngine(128)

	tx := testTransaction(e)
	// 1147 = 31*37: not prime, coprime to the ten smallest primes, and
	// 1147+2 = 1149 = 3*383 keeps the nonce fallback composite too.
	tx.Timestamp = 1147
	tx.Nonce = 2
	tx.QuantumProof.ResistanceScore = 0
	assert.ErrorIs(t, e.ValidateTransaction(tx), prime.ErrInvalidTimestamp)
}

func TestResistanceScoreRange(t *testing.T) {
	e := prime.NewEngine(128)

	tx := testTransaction(e)
	score := e.ResistanceScore(tx)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
}
