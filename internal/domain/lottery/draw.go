package lottery

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

var drawRandomInt = secureRandomInt

// Draw picks exactly one entry uniformly at random.
func Draw(pool Pool) (Entry, error) {
	if len(pool.Entries) == 0 {
		return Entry{}, ErrNoParticipants
	}

	idx, err := drawRandomInt(len(pool.Entries))
	if err != nil {
		return Entry{}, fmt.Errorf("pick random entry: %w", err)
	}

	if idx < 0 || idx >= len(pool.Entries) {
		return Entry{}, fmt.Errorf("random index %d out of range %d", idx, len(pool.Entries))
	}

	return pool.Entries[idx], nil
}

func secureRandomInt(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("range must be positive")
	}

	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("crypto/rand: %w", err)
	}

	return int(v.Int64()), nil
}
