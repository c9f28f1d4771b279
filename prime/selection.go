package prime

import (
	"encoding/binary"

	"primedag/models"
)

// SelectValidator deterministically picks a validator index for a round.
// The round number and validator count are hashed, the first eight hash
// bytes reduced modulo the total weight, and the first validator whose
// running cumulative weight reaches that target wins.
func (e *Engine) SelectValidator(infos []models.ValidatorInfo, round uint64) (int, error) {
	if len(infos) == 0 {
		return 0, ErrNoValidators
	}

	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], round)
	binary.BigEndian.PutUint64(buf[8:], uint64(len(infos)))
	seed := binary.BigEndian.Uint64(e.PrimeHash(buf)[:8])

	var total float64
	for _, info := range infos {
		total += info.Weight
	}
	totalWeight := uint64(total)
	if totalWeight == 0 {
		return int(seed % uint64(len(infos))), nil
	}

	target := float64(seed % totalWeight)
	var cumulative float64
	for i, info := range infos {
		cumulative += info.Weight
		if cumulative >= target {
			return i, nil
		}
	}
	return len(infos) - 1, nil
}
