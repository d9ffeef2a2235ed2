package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackoffEntry_AdvanceSequence(t *testing.T) {
	// Heartbeat 1 is the new-drift transition: it fires a refresh and
	// seeds the entry at {RetryCount: 1, Pow: 0} without calling
	// Advance. Advance then runs from heartbeat 2 on, with thresholds
	// 1,2,4,8,16,16,16,... matching spec S3's refresh indices 1, 2, 4,
	// 8, 16.
	b := &BackoffEntry{RetryCount: 1}
	wantFire := map[int]bool{2: true, 3: false, 4: true, 5: false, 6: false, 7: false, 8: true}

	for i := 2; i <= 8; i++ {
		fired := b.Advance()
		assert.Equal(t, wantFire[i], fired, "heartbeat %d", i)
	}
}

func TestBackoffEntry_PowCapsAtFour(t *testing.T) {
	b := &BackoffEntry{}
	for i := 0; i < 100; i++ {
		b.Advance()
	}
	assert.Equal(t, MaxBackoffPow, b.Pow)
	assert.Equal(t, 16, b.Threshold())
}
