package policy

import (
	"regexp"
	"time"
)

// RateLimitRule allows Rate calls per Window for a group of methods. Rate
// also serves as the burst.
type RateLimitRule struct {
	Rate   int
	Window time.Duration
}

// PerSecond converts the rule to a token refill rate.
func (r RateLimitRule) PerSecond() float64 {
	if r.Window <= 0 {
		return float64(r.Rate)
	}
	return float64(r.Rate) / r.Window.Seconds()
}

// Policy holds the limits that apply to a matched method group. A zero
// Timeout leaves the caller's deadline alone.
type Policy struct {
	RateLimit *RateLimitRule
	Timeout   time.Duration
}

type matchKind int

// Lower kinds take priority.
const (
	kindExact matchKind = iota
	kindPrefix
	kindRegex
)

type rule struct {
	kind    matchKind
	pattern string
	re      *regexp.Regexp // kindRegex only
}

// GroupBuilder is a named set of method matchers sharing one Policy.
type GroupBuilder struct {
	name   string
	rules  []rule
	policy *Policy
}

// Group starts a method group called name. The name keys per-group state
// such as the group's rate limiter, so it should be unique per server.
func Group(name string) *GroupBuilder {
	return &GroupBuilder{name: name}
}

func (g *GroupBuilder) add(r rule) *GroupBuilder {
	g.rules = append(g.rules, r)
	return g
}

// Exact matches one full method, e.g. "/gamecatalog.Catalog/Search".
func (g *GroupBuilder) Exact(fullMethod string) *GroupBuilder {
	return g.add(rule{kind: kindExact, pattern: fullMethod})
}

// Prefix matches every method starting with prefix, e.g. a whole service.
func (g *GroupBuilder) Prefix(prefix string) *GroupBuilder {
	return g.add(rule{kind: kindPrefix, pattern: prefix})
}

// Regex matches methods containing a match of expr. It panics if expr does
// not compile.
func (g *GroupBuilder) Regex(expr string) *GroupBuilder {
	return g.add(rule{kind: kindRegex, pattern: expr, re: regexp.MustCompile(expr)})
}

// Policy sets the group's policy.
func (g *GroupBuilder) Policy(p Policy) *GroupBuilder {
	g.policy = &p
	return g
}
