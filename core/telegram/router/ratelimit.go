package router

import (
	"sync"
	"time"
)

// chatLimiter enforces a minimum interval between handled updates from
// the same chat. A zero interval allows everything.
type chatLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	lastSeen map[int64]time.Time
}

func newChatLimiter(interval time.Duration) *chatLimiter {
	return &chatLimiter{
		interval: interval,
		lastSeen: make(map[int64]time.Time),
	}
}

func (l *chatLimiter) Allow(chatID int64) bool {
	if l.interval <= 0 {
		return true
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.lastSeen[chatID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[chatID] = now
	return true
}
