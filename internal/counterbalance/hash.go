package counterbalance

import (
	"math"
	"strconv"
	"strings"
)

// HashString folds the bytes of s into a 32-bit signed rolling hash
// (h = h*31 + b, wrapping) and returns its absolute value.
func HashString(s string) int64 {
	var h int32
	for i := 0; i < len(s); i++ {
		h = h*31 + int32(s[i])
	}

	v := int64(h)
	if v < 0 {
		v = -v
	}

	return v
}

// ParticipantNumber maps an identifier to an integer: the literal value when
// the trimmed id is an integer, otherwise its string hash.
func ParticipantNumber(id string) int64 {
	if n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64); err == nil {
		return n
	}

	return HashString(id)
}

// PatternIndex returns the Latin-square row (0-3) for a participant.
func PatternIndex(id string) int {
	return int(((ParticipantNumber(id) % 4) + 4) % 4)
}

// LCG constants (glibc-compatible multiplier and increment).
const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
	lcgModulus    = math.MaxInt32 // 2^31 - 1
)

// LCG is the seeded linear congruential generator used for trial order.
// Arithmetic is exact in int64 for any seed below 2^32. A float64 rendering
// of the same recurrence rounds once seed*multiplier passes 2^53 (seeds above
// roughly 8.16e6), so sequences match such an implementation only for small seeds.
type LCG struct {
	state int64
}

// NewLCG seeds a generator.
func NewLCG(seed int64) *LCG {
	return &LCG{state: seed}
}

// Next advances the generator and returns a value in [0, 1).
func (g *LCG) Next() float64 {
	g.state = (g.state*lcgMultiplier + lcgIncrement) % lcgModulus
	if g.state < 0 {
		g.state += lcgModulus
	}

	return float64(g.state) / lcgModulus
}
