package trialset

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrSetUnresolvable is returned when a trial has no set id and none can be inferred.
var ErrSetUnresolvable = errors.New("set id cannot be resolved")

var trailingOrdinal = regexp.MustCompile(`(\d+)$`)

// setBuckets is the fallback table for node_pair_id ordinals. It matches the
// 24-pair generator layout (six pairs per bucket) and nothing else; tables
// written with an explicit set_id column never reach it.
var setBuckets = []struct {
	lo, hi, set int
}{
	{1, 6, 1},
	{7, 12, 2},
	{13, 18, 3},
	{19, 24, 4},
}

// InferSetID derives a set id from the trailing ordinal of a pair identifier
// such as "pair_14".
func InferSetID(nodePairID string) (int, error) {
	m := trailingOrdinal.FindStringSubmatch(nodePairID)
	if m == nil {
		return 0, fmt.Errorf("%w: no ordinal in %q", ErrSetUnresolvable, nodePairID)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSetUnresolvable, err)
	}

	for _, b := range setBuckets {
		if n >= b.lo && n <= b.hi {
			return b.set, nil
		}
	}

	return 0, fmt.Errorf("%w: ordinal %d outside 1-24", ErrSetUnresolvable, n)
}

// ResolveSet returns the trial's explicit set id, or the inferred one.
func ResolveSet(setID *int, nodePairID string) (int, error) {
	if setID != nil {
		return *setID, nil
	}

	return InferSetID(nodePairID)
}
