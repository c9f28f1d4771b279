package prime

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"primedag/models"
)

// Fixed weights of the resistance-score components.
const (
	complexityWeight = 30.0
	signatureWeight  = 40.0

	parentBonus    = 5.0
	parentCapBonus = 3.0
	metadataBonus  = 4.0
	amountBonus    = 3.0

	recencyHourBonus = 15.0
	recencyDayBonus  = 10.0
	recencyWeekBonus = 5.0
)

// ValidateTransaction recomputes the prime hash of the transaction id,
// rechecks the claimed resistance score, and validates the timestamp.
// Any failure is returned before state is touched anywhere else.
func (e *Engine) ValidateTransaction(tx *models.Transaction) error {
	hash := e.PrimeHash([]byte(tx.ID))
	if !bytes.Equal(hash, tx.QuantumProof.PrimeHash) {
		return ErrInvalidPrimeHash
	}

	if e.ResistanceScore(tx) < tx.QuantumProof.ResistanceScore {
		return ErrInsufficientResistance
	}

	if !e.validTimestamp(tx.Timestamp, tx.Nonce) {
		return ErrInvalidTimestamp
	}
	return nil
}

// ResistanceScore blends hash complexity, signature entropy, structural
// bonuses and timestamp recency into a 0..100 score.
func (e *Engine) ResistanceScore(tx *models.Transaction) float64 {
	hashInt := binary.BigEndian.Uint64(e.PrimeHash([]byte(tx.ID))[:8])
	complexity := math.Log2(float64(len(PrimeFactors(hashInt))) + 1)
	score := clamp01(complexity/6) * complexityWeight

	score += shannonEntropy(tx.Signature) / 8 * signatureWeight

	if len(tx.Parents) > 0 {
		score += parentBonus
	}
	if len(tx.Parents) <= 8 {
		score += parentCapBonus
	}
	if len(tx.Metadata) > 0 {
		score += metadataBonus
	}
	if tx.Amount > 0 {
		score += amountBonus
	}

	age := time.Now().Unix() - tx.Timestamp
	switch {
	case age >= 0 && age <= 3600:
		score += recencyHourBonus
	case age > 3600 && age <= 86400:
		score += recencyDayBonus
	case age > 86400 && age <= 604800:
		score += recencyWeekBonus
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// validTimestamp accepts prime timestamps above 1000, prime
// timestamp+nonce sums, or timestamps divisible by any of the ten
// smallest primes. The divisibility fallback is intentionally permissive.
func (e *Engine) validTimestamp(ts int64, nonce uint64) bool {
	if ts <= 0 {
		return false
	}
	uts := uint64(ts)
	if uts > 1000 && IsPrime(uts) {
		return true
	}
	if IsPrime(uts + nonce) {
		return true
	}
	for _, p := range smallPrimes {
		if uts%p == 0 {
			return true
		}
	}
	return false
}

// shannonEntropy returns the byte-level entropy of data in bits (0..8).
func shannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	var entropy float64
	total := float64(len(data))
	for _, c := range freq {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
