package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/noddit/config"
)

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

// in-memory counterpart used when Redis is not configured
var (
	regMu        sync.Mutex
	regCooldowns = map[string]time.Time{}
	regDaily     = map[string]int{}
)

// RegistrationCooldownTry enforces a short cooldown between attempts per IP.
func RegistrationCooldownTry(ip string) bool {
	sec := config.Get().RegisterAttemptCooldownSec
	if sec <= 0 {
		return true
	}
	cooldown := time.Duration(sec) * time.Second
	key := regKey("cooldown", ip)

	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		ok, err := cli.SetNX(ctx, key, "1", cooldown).Result()
		if err != nil {
			return true
		} // fail-open
		return ok
	}

	regMu.Lock()
	defer regMu.Unlock()
	now := time.Now()
	if until, ok := regCooldowns[key]; ok && now.Before(until) {
		return false
	}
	for k, until := range regCooldowns {
		if !now.Before(until) {
			delete(regCooldowns, k)
		}
	}
	regCooldowns[key] = now.Add(cooldown)
	return true
}

// RegistrationDailyLimitCheck allows up to N successful registrations per day per IP.
func RegistrationDailyLimitCheck(ip string) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	key := regKey("succday", ip, time.Now().Format("20060102"))

	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		n, err := cli.Get(ctx, key).Int()
		if err == redis.Nil {
			n = 0
		} else if err != nil {
			return true
		}
		return n < limit
	}

	regMu.Lock()
	defer regMu.Unlock()
	return regDaily[key] < limit
}

// RegistrationDailyIncrement increments the success counter for today.
func RegistrationDailyIncrement(ip string) {
	key := regKey("succday", ip, time.Now().Format("20060102"))

	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := cli.Incr(ctx, key).Err(); err == nil {
			// expire at end of day
			ttl := time.Until(time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour))
			_ = cli.Expire(ctx, key, ttl).Err()
		}
		return
	}

	regMu.Lock()
	defer regMu.Unlock()
	today := time.Now().Format("20060102")
	for k := range regDaily {
		if !strings.HasSuffix(k, ":"+today) {
			delete(regDaily, k)
		}
	}
	regDaily[key]++
}

// resetRegistrationThrottle clears in-memory state; used by tests.
func resetRegistrationThrottle() {
	regMu.Lock()
	regCooldowns = map[string]time.Time{}
	regDaily = map[string]int{}
	regMu.Unlock()
}
