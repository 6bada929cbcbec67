package ratelimit

import (
	"strings"
	"time"
)

// Rule limits one method and path. A Path ending in "/" matches every path under it.
type Rule struct {
	Method string
	Path   string
	Limit  int           // requests per Window; 0 means unlimited
	Window time.Duration
	Burst  int // bucket capacity; defaults to Limit
}

// Unlimited reports whether the rule never rejects.
func (r *Rule) Unlimited() bool {
	return r.Limit <= 0 || r.Window <= 0
}

func (r *Rule) capacity() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

func (r *Rule) rate() float64 {
	return float64(r.Limit) / r.Window.Seconds()
}

func (r *Rule) matches(path, method string) bool {
	if r.Method != method {
		return false
	}
	if strings.HasSuffix(r.Path, "/") {
		return strings.HasPrefix(path, r.Path)
	}
	return r.Path == path
}

// healthRule exempts the liveness check.
var healthRule = Rule{Method: "GET", Path: "/health"}

// DefaultRules covers the endpoints that cost provider calls or disk.
func DefaultRules() []Rule {
	return []Rule{
		// Each accepted generate request runs a transcription and an LLM call.
		{Method: "POST", Path: "/report/generate", Limit: 20, Window: time.Hour, Burst: 5},
		{Method: "POST", Path: "/audio/upload", Limit: 30, Window: time.Hour, Burst: 5},

		{Method: "POST", Path: "/auth/register", Limit: 10, Window: time.Minute, Burst: 3},
		{Method: "POST", Path: "/auth/login", Limit: 30, Window: time.Minute, Burst: 10},

		{Method: "GET", Path: "/report/events/", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

// MatchRule returns the rule for path and method, or nil when the default limit applies.
// Exact rules win over prefix rules.
func MatchRule(path, method string, rules []Rule) *Rule {
	if healthRule.matches(path, method) {
		r := healthRule
		return &r
	}

	for i := range rules {
		if !strings.HasSuffix(rules[i].Path, "/") && rules[i].matches(path, method) {
			return &rules[i]
		}
	}
	for i := range rules {
		if rules[i].matches(path, method) {
			return &rules[i]
		}
	}
	return nil
}
