// Package appnumber produces human-shareable application numbers.
package appnumber

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	prefix       = "CITES"
	randomLength = 5
	alphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Generator builds identifiers of the form CITES-<millis base36>-<random>.
// The time segment keeps numbers roughly sortable; the random suffix makes
// same-millisecond collisions negligible. The store still enforces
// uniqueness as the write-time authority, and the submission workflow
// regenerates once on a duplicate conflict.
type Generator struct {
	now func() time.Time
}

func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock is used by tests to pin the time segment.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

func (g *Generator) Generate() string {
	ts := strings.ToUpper(strconv.FormatInt(g.now().UnixMilli(), 36))
	return fmt.Sprintf("%s-%s-%s", prefix, ts, randomSuffix(randomLength))
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	// rand.Read on crypto/rand never returns a partial read without error.
	if _, err := rand.Read(buf); err != nil {
		// Fall back to the clock; the store's uniqueness constraint
		// catches the (already unlikely) collision.
		ns := strconv.FormatInt(time.Now().UnixNano(), 36)
		return strings.ToUpper(ns[len(ns)-n:])
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}
