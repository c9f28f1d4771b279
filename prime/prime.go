package prime

import (
	"encoding/binary"
	"errors"
	"math"
	"math/bits"
	"sync"
)

// Modulus is the fixed prime modulus for the multiplicative hash (2^61 - 1).
// The hash is a deterministic checksum, not a cryptographic digest.
const Modulus uint64 = 1<<61 - 1

const seedPrimeCount = 1000

var (
	ErrNoValidators           = errors.New("no validators available")
	ErrInvalidPrimeHash       = errors.New("prime hash mismatch")
	ErrInsufficientResistance = errors.New("insufficient quantum resistance")
	ErrInvalidTimestamp       = errors.New("invalid transaction timestamp")
)

// smallPrimes is the divisibility fallback set for timestamp validation.
var smallPrimes = [10]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}

// Engine caches generated primes and exposes the prime-indexed hash and
// deterministic validator selection built on top of it.
type Engine struct {
	mu            sync.Mutex
	primes        []uint64
	securityLevel int
}

// NewEngine seeds the prime cache and fixes the configured security level.
func NewEngine(securityLevel int) *Engine {
	if securityLevel <= 0 {
		securityLevel = 128
	}
	e := &Engine{
		primes:        make([]uint64, 0, seedPrimeCount),
		securityLevel: securityLevel,
	}
	for n := uint64(2); len(e.primes) < seedPrimeCount; n++ {
		if IsPrime(n) {
			e.primes = append(e.primes, n)
		}
	}
	return e
}

// IsPrime tests primality by trial division up to the square root,
// skipping even candidates past 2 and 3.
func IsPrime(n uint64) bool {
	if n < 2 {
		return false
	}
	if n == 2 || n == 3 {
		return true
	}
	if n%2 == 0 || n%3 == 0 {
		return false
	}
	for d := uint64(5); d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// NthPrime returns the zero-indexed nth prime, extending the cache by
// trial division when n runs past it.
func (e *Engine) NthPrime(n int) uint64 {
	if n < 0 {
		n = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.primes) <= n {
		cand := e.primes[len(e.primes)-1] + 2
		for !IsPrime(cand) {
			cand += 2
		}
		e.primes = append(e.primes, cand)
	}
	return e.primes[n]
}

// PrimeHash multiplies a running accumulator by the byte-indexed prime
// for each input byte, reducing modulo Modulus after every step, and
// returns the accumulator as big-endian bytes.
func (e *Engine) PrimeHash(data []byte) []byte {
	acc := uint64(1)
	for _, b := range data {
		acc = mulMod(acc, e.NthPrime(int(b)))
	}
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, acc)
	return out
}

// mulMod computes a*b mod Modulus through the full 128-bit product.
func mulMod(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, Modulus)
	return rem
}

// PrimeFactors factors n by trial division, returning factors in
// non-decreasing order with repeats.
func PrimeFactors(n uint64) []uint64 {
	var factors []uint64
	for n%2 == 0 {
		factors = append(factors, 2)
		n /= 2
	}
	for d := uint64(3); d*d <= n; d += 2 {
		for n%d == 0 {
			factors = append(factors, d)
			n /= d
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}

// QuantumResistanceScore reports the layer-wide resistance scalar derived
// from the modulus width and the configured security level.
func (e *Engine) QuantumResistanceScore() float64 {
	score := math.Log2(float64(Modulus)) / 256 * float64(e.securityLevel) / 128
	return clamp01(score)
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
