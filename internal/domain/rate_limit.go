package domain

import (
	"time"
)

type RateLimitRule struct {
	Scope  string        `json:"scope"`
	Key    string        `json:"key"`
	Limit  int           `json:"limit"`
	Window time.Duration `json:"window"`
}

const (
	RateLimitScopeSend  = "send"
	RateLimitScopeShare = "share"
)

// CounterKey is the Redis key holding the counter for the current window.
func (r RateLimitRule) CounterKey() string {
	return "ratelimit:" + r.Scope + ":" + r.Key
}
