package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := New(2, 10*time.Second)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("scan"))
	assert.True(t, l.Allow("scan"))

	ok, wait := l.Reserve("scan")
	assert.False(t, ok)
	assert.Equal(t, 10*time.Second, wait)

	// other keys have their own bucket
	assert.True(t, l.Allow("other"))

	now = now.Add(10 * time.Second)
	assert.True(t, l.Allow("scan"))
	assert.False(t, l.Allow("scan"))
}

func TestLimiter_DisabledAllowsEverything(t *testing.T) {
	l := New(0, time.Second)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("scan"))
	}

	var nilLimiter *Limiter
	assert.True(t, nilLimiter.Allow("scan"))
}
