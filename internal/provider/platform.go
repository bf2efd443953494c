// AngelaMos | 2026
// platform.go

package provider

import (
	"strings"
)

type Platform string

const (
	PlatformPC      Platform = "pc"
	PlatformConsole Platform = "console"
	PlatformPS4     Platform = "ps4"
	PlatformPS5     Platform = "ps5"
	PlatformXbox    Platform = "xbox"
	PlatformSwitch  Platform = "switch"
	PlatformCloud   Platform = "cloud"
)

var canonicalPlatforms = map[Platform]struct{}{
	PlatformPC:      {},
	PlatformConsole: {},
	PlatformPS4:     {},
	PlatformPS5:     {},
	PlatformXbox:    {},
	PlatformSwitch:  {},
	PlatformCloud:   {},
}

func (p Platform) Valid() bool {
	_, ok := canonicalPlatforms[p]
	return ok
}

// ParsePlatform accepts only canonical tags, case-insensitively.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", false
	}
	return p, true
}

// PlatformSet collects platform tags preserving first-seen order.
type PlatformSet struct {
	order []Platform
	seen  map[Platform]struct{}
}

func NewPlatformSet(platforms ...Platform) *PlatformSet {
	s := &PlatformSet{seen: make(map[Platform]struct{})}
	for _, p := range platforms {
		s.Add(p)
	}
	return s
}

// Add ignores tags outside the canonical vocabulary.
func (s *PlatformSet) Add(p Platform) {
	if !p.Valid() {
		return
	}
	if _, ok := s.seen[p]; ok {
		return
	}
	s.seen[p] = struct{}{}
	s.order = append(s.order, p)
}

func (s *PlatformSet) Has(p Platform) bool {
	_, ok := s.seen[p]
	return ok
}

func (s *PlatformSet) Len() int {
	return len(s.order)
}

func (s *PlatformSet) Slice() []Platform {
	out := make([]Platform, len(s.order))
	copy(out, s.order)
	return out
}
