package policy

import (
	"strings"
	"sync"
)

// Resolver maps full method names onto groups. Results are memoized per
// method since a server only ever sees its own closed set of methods.
// A Resolver is safe for concurrent use.
type Resolver struct {
	groups []*GroupBuilder
	memo   sync.Map // full method -> match
}

type match struct {
	group  string
	policy *Policy
	ok     bool
}

// NewResolver creates a Resolver over groups. Groups must not be modified
// afterwards.
func NewResolver(groups ...*GroupBuilder) *Resolver {
	return &Resolver{groups: groups}
}

// Resolve returns the group that best matches fullMethod and its policy.
// Exact rules beat prefix rules, which beat regex rules. Within one kind the
// longer match wins, and on a full tie the group registered first wins. ok
// is false when nothing matches.
func (res *Resolver) Resolve(fullMethod string) (groupName string, pol *Policy, ok bool) {
	if m, hit := res.memo.Load(fullMethod); hit {
		m := m.(match)
		return m.group, m.policy, m.ok
	}
	m := res.resolve(fullMethod)
	res.memo.Store(fullMethod, m)
	return m.group, m.policy, m.ok
}

func (res *Resolver) resolve(fullMethod string) match {
	var best match
	bestKind, bestLen := matchKind(-1), -1
	for _, g := range res.groups {
		for _, r := range g.rules {
			n := r.matchLen(fullMethod)
			if n < 0 {
				continue
			}
			if bestKind < 0 || r.kind < bestKind || (r.kind == bestKind && n > bestLen) {
				bestKind, bestLen = r.kind, n
				best = match{group: g.name, policy: g.policy, ok: true}
			}
		}
	}
	return best
}

// matchLen returns the length of the part of fullMethod that r matches, or
// -1 when r does not match.
func (r *rule) matchLen(fullMethod string) int {
	switch r.kind {
	case kindExact:
		if fullMethod == r.pattern {
			return len(r.pattern)
		}
	case kindPrefix:
		if strings.HasPrefix(fullMethod, r.pattern) {
			return len(r.pattern)
		}
	case kindRegex:
		if loc := r.re.FindStringIndex(fullMethod); loc != nil {
			return loc[1] - loc[0]
		}
	}
	return -1
}
