// AngelaMos | 2026
// record.go

package provider

import (
	"time"
)

// IDKind names the catalog family a native identifier belongs to.
type IDKind string

const (
	IDKindIGDB    IDKind = "igdb"
	IDKindRAWG    IDKind = "rawg"
	IDKindMSStore IDKind = "ms_store"
	IDKindPSN     IDKind = "psn"
	IDKindUbisoft IDKind = "ubisoft"
)

func (k IDKind) Valid() bool {
	switch k {
	case IDKindIGDB, IDKindRAWG, IDKindMSStore, IDKindPSN, IDKindUbisoft:
		return true
	}
	return false
}

// Record is one provider listing normalized to the shape the resolver and
// reconciler consume.
type Record struct {
	Title       string
	Description string
	CoverURL    string
	ReleaseDate *time.Time
	NativeID    string
	IDKind      IDKind
	Platforms   []Platform

	// Tier is the subscription tier the provider lists the title under.
	Tier string

	// DualListed marks titles that are also reachable through the companion
	// subscription and need one extra reconciliation there.
	DualListed bool
}

// ParseDate accepts the date layouts providers emit and keeps the date part.
func ParseDate(s string) *time.Time {
	if s == "" {
		return nil
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}

	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return &t
		}
	}

	return nil
}
