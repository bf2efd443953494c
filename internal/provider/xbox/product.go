// AngelaMos | 2026
// product.go

package xbox

import (
	"strings"

	"github.com/gotitgames/catalog/internal/provider"
)

// ToRecord maps a store product to a record. membership adds platforms
// implied by the collection the product was listed in. ok is false when the
// product has no title.
func ToRecord(p Product, membership ...provider.Platform) (provider.Record, bool) {
	if len(p.LocalizedProperties) == 0 {
		return provider.Record{}, false
	}

	loc := p.LocalizedProperties[0]
	title := strings.TrimSpace(loc.ProductTitle)
	if title == "" {
		return provider.Record{}, false
	}

	rec := provider.Record{
		Title:       title,
		Description: strings.TrimSpace(loc.ShortDescription),
		CoverURL:    coverURL(loc.Images),
		NativeID:    p.ProductID,
		IDKind:      provider.IDKindMSStore,
		Platforms:   Platforms(p, membership...).Slice(),
	}

	if len(p.MarketProperties) > 0 {
		rec.ReleaseDate = provider.ParseDate(p.MarketProperties[0].OriginalReleaseDate)
	}

	return rec, true
}

func coverURL(images []Image) string {
	var chosen string
	for _, img := range images {
		if img.ImagePurpose == "BoxArt" {
			chosen = img.URI
			break
		}
	}
	if chosen == "" && len(images) > 0 {
		chosen = images[0].URI
	}
	if strings.HasPrefix(chosen, "//") {
		chosen = "https:" + chosen
	}
	return chosen
}

// Platforms reads the store categories. Game Pass listings without any
// platform signal are playable on both PC and console.
func Platforms(p Product, membership ...provider.Platform) *provider.PlatformSet {
	set := provider.NewPlatformSet()

	if p.Properties != nil {
		for _, category := range p.Properties.Categories {
			switch {
			case strings.Contains(category, "Xbox"):
				set.Add(provider.PlatformConsole)
			case strings.Contains(category, "PC"), strings.Contains(category, "Windows"):
				set.Add(provider.PlatformPC)
			}
		}
	}

	for _, m := range membership {
		set.Add(m)
	}

	if set.Len() == 0 {
		set.Add(provider.PlatformPC)
		set.Add(provider.PlatformConsole)
	}

	return set
}
