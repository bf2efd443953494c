// AngelaMos | 2026
// entity.go

package game

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/gotitgames/catalog/internal/provider"
)

// Platforms is stored as a JSONB array of canonical platform tags.
type Platforms []string

func (p Platforms) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal platforms: %w", err)
	}
	return string(b), nil
}

func (p *Platforms) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan platforms: unsupported type %T", src)
	}
	return json.Unmarshal(raw, p)
}

func PlatformsFrom(tags []provider.Platform) Platforms {
	out := make(Platforms, 0, len(tags))
	for _, t := range tags {
		out = append(out, string(t))
	}
	return out
}

// Game is the canonical record for one real-world title. IGDBID is the
// preferred external reference; RAWGID and the store ids are secondary.
type Game struct {
	ID              string     `db:"id"`
	Title           string     `db:"title"`
	NormalizedTitle string     `db:"normalized_title"`
	Slug            *string    `db:"slug"`
	IGDBID          *int64     `db:"igdb_id"`
	RAWGID          *int64     `db:"rawg_id"`
	MSStoreID       *string    `db:"ms_store_id"`
	PSNID           *string    `db:"psn_id"`
	UbisoftID       *string    `db:"ubisoft_id"`
	CoverURL        *string    `db:"cover_url"`
	ReleaseDate     *time.Time `db:"release_date"`
	Platforms       Platforms  `db:"platforms"`
	Description     *string    `db:"description"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// ExternalID returns the stored id for kind, or "" when unset.
func (g *Game) ExternalID(kind provider.IDKind) string {
	switch kind {
	case provider.IDKindIGDB:
		if g.IGDBID != nil {
			return fmt.Sprintf("%d", *g.IGDBID)
		}
	case provider.IDKindRAWG:
		if g.RAWGID != nil {
			return fmt.Sprintf("%d", *g.RAWGID)
		}
	case provider.IDKindMSStore:
		return deref(g.MSStoreID)
	case provider.IDKindPSN:
		return deref(g.PSNID)
	case provider.IDKindUbisoft:
		return deref(g.UbisoftID)
	}
	return ""
}

// Metadata is descriptive data from an external metadata catalog.
type Metadata struct {
	IGDBID      int64
	RAWGID      int64
	Title       string
	Slug        string
	CoverURL    string
	Description string
	ReleaseDate *time.Time
	Platforms   []string
}

// Fields holds values to write into a game only where the game has none.
type Fields struct {
	Slug        *string
	IGDBID      *int64
	RAWGID      *int64
	MSStoreID   *string
	PSNID       *string
	UbisoftID   *string
	CoverURL    *string
	Description *string
	ReleaseDate *time.Time
	Platforms   Platforms
}

func (f Fields) Empty() bool {
	return f.Slug == nil && f.IGDBID == nil && f.RAWGID == nil && f.MSStoreID == nil &&
		f.PSNID == nil && f.UbisoftID == nil && f.CoverURL == nil &&
		f.Description == nil && f.ReleaseDate == nil && len(f.Platforms) == 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr[T any](v T) *T {
	return &v
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
