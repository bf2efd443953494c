// AngelaMos | 2026
// seed.go

package subscription

const (
	SlugGamePass    = "gamepass"
	SlugPSPlus      = "psplus"
	SlugEAPlay      = "eaplay"
	SlugUbisoftPlus = "ubisoftplus"
)

// Seeds is the fixed set of tracked services.
func Seeds() []Subscription {
	return []Subscription{
		{
			Slug:  SlugGamePass,
			Name:  "Xbox Game Pass",
			Color: "#107C10",
			Tiers: Tiers{
				{Slug: "core", Name: "Core", Rank: 1},
				{Slug: "standard", Name: "Standard", Rank: 2},
				{Slug: "ultimate", Name: "Ultimate", Rank: 3},
			},
		},
		{
			Slug:  SlugPSPlus,
			Name:  "PlayStation Plus",
			Color: "#003791",
			Tiers: Tiers{
				{Slug: "essential", Name: "Essential", Rank: 1},
				{Slug: "extra", Name: "Extra", Rank: 2},
				{Slug: "premium", Name: "Premium", Rank: 3},
			},
		},
		{
			Slug:  SlugEAPlay,
			Name:  "EA Play",
			Color: "#FF4747",
			Tiers: Tiers{
				{Slug: "standard", Name: "Standard", Rank: 1},
				{Slug: "pro", Name: "Pro", Rank: 2},
			},
		},
		{
			Slug:  SlugUbisoftPlus,
			Name:  "Ubisoft+",
			Color: "#0070FF",
			Tiers: Tiers{
				{Slug: "classics", Name: "Classics", Rank: 1},
				{Slug: "premium", Name: "Premium", Rank: 2},
			},
		},
	}
}
