package appnumber

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var numberPattern = regexp.MustCompile(`^CITES-[0-9A-Z]+-[0-9A-Z]{5}$`)

func TestGenerator_Format(t *testing.T) {
	gen := New()

	number := gen.Generate()

	assert.Regexp(t, numberPattern, number)
}

func TestGenerator_UniqueAcrossTrials(t *testing.T) {
	gen := New()

	seen := make(map[string]struct{})
	for i := 0; i < 10000; i++ {
		number := gen.Generate()
		_, dup := seen[number]
		assert.False(t, dup, "duplicate number generated: %s", number)
		seen[number] = struct{}{}
	}
}

func TestGenerator_TimeSegmentFromClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	gen := NewWithClock(func() time.Time { return fixed })

	first := gen.Generate()
	second := gen.Generate()

	// Same clock, same time segment, still distinct suffixes.
	assert.Equal(t, first[:len(first)-6], second[:len(second)-6])
	assert.NotEqual(t, first, second)
}
