package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlacklistTokenInMemory(t *testing.T) {
	BlacklistToken("tok-a", time.Now().Add(time.Minute))
	assert.True(t, IsTokenBlacklisted("tok-a"))
	assert.False(t, IsTokenBlacklisted("tok-b"))
}

func TestBlacklistTokenAlreadyExpired(t *testing.T) {
	BlacklistToken("tok-expired", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenBlacklisted("tok-expired"))
}

func TestBlacklistEntryExpires(t *testing.T) {
	blacklistMu.Lock()
	blacklist["tok-stale"] = blacklistEntry{expiresAt: time.Now().Add(-time.Second)}
	blacklistMu.Unlock()

	assert.False(t, IsTokenBlacklisted("tok-stale"))

	blacklistMu.RLock()
	_, ok := blacklist["tok-stale"]
	blacklistMu.RUnlock()
	assert.False(t, ok)
}
