package apply

import (
	"fmt"

	"github.com/gobwas/glob"
)

// BranchPolicy decides which branches the engine owns. Owned branches are
// force-pushed; others get a plain push so divergent remote history makes
// the push fail instead of being discarded.
type BranchPolicy struct {
	owned []glob.Glob
}

// NewBranchPolicy compiles owned-branch globs. With no patterns every
// branch is owned.
func NewBranchPolicy(patterns []string) (*BranchPolicy, error) {
	p := &BranchPolicy{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid owned branch pattern '%s': %w", pattern, err)
		}
		p.owned = append(p.owned, g)
	}
	return p, nil
}

// Owns reports whether branch may be force-pushed.
func (p *BranchPolicy) Owns(branch string) bool {
	if p == nil || len(p.owned) == 0 {
		return true
	}
	for _, g := range p.owned {
		if g.Match(branch) {
			return true
		}
	}
	return false
}
