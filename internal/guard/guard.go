// Package guard enforces forward-only editing: while engaged, an edit that
// would shorten the text is rejected.
package guard

import (
	"sync/atomic"

	"github.com/sadopc/writingflow/internal/textstats"
)

// Validate reports whether replacing old with new is allowed. With the
// guard disabled every edit is allowed; otherwise the new text must have at
// least as many characters as the old one. Replacements of equal length are
// allowed.
func Validate(old, new string, enabled bool) bool {
	if !enabled {
		return true
	}
	return textstats.CharacterCount(new) >= textstats.CharacterCount(old)
}

// Guard holds the engaged flag for the live session. The zero value is
// disengaged and safe for concurrent use.
type Guard struct {
	engaged atomic.Bool
}

func (g *Guard) Engage()    { g.engaged.Store(true) }
func (g *Guard) Disengage() { g.engaged.Store(false) }

func (g *Guard) Engaged() bool { return g.engaged.Load() }

// Check validates an edit against the current flag.
func (g *Guard) Check(old, new string) bool {
	return Validate(old, new, g.Engaged())
}
