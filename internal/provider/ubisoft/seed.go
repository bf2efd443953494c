// AngelaMos | 2026
// seed.go

package ubisoft

import (
	"github.com/gotitgames/catalog/internal/provider"
)

type seedTitle struct {
	Title     string
	Tier      string
	Platforms []provider.Platform
}

var (
	pcConsole = []provider.Platform{provider.PlatformPC, provider.PlatformConsole}
	pcOnly    = []provider.Platform{provider.PlatformPC}
)

// seedList is the maintained Ubisoft+ lineup used when the store search
// returns nothing.
var seedList = []seedTitle{
	{"Assassin's Creed Mirage", TierPremium, pcConsole},
	{"Assassin's Creed Valhalla", TierClassics, pcConsole},
	{"Assassin's Creed Odyssey", TierClassics, pcConsole},
	{"Assassin's Creed Origins", TierClassics, pcConsole},
	{"Far Cry 6", TierClassics, pcConsole},
	{"Far Cry 5", TierClassics, pcConsole},
	{"Far Cry New Dawn", TierClassics, pcConsole},
	{"Watch Dogs: Legion", TierClassics, pcConsole},
	{"Watch Dogs 2", TierClassics, pcConsole},
	{"Rainbow Six Siege", TierClassics, pcConsole},
	{"The Division 2", TierClassics, pcConsole},
	{"Ghost Recon Breakpoint", TierClassics, pcConsole},
	{"Immortals Fenyx Rising", TierClassics, pcConsole},
	{"Riders Republic", TierClassics, pcConsole},
	{"Skull and Bones", TierPremium, pcConsole},
	{"Avatar: Frontiers of Pandora", TierPremium, pcConsole},
	{"Prince of Persia: The Lost Crown", TierPremium, pcConsole},
	{"Star Wars Outlaws", TierPremium, pcConsole},
	{"Anno 1800", TierClassics, pcOnly},
	{"The Crew Motorfest", TierPremium, pcConsole},
	{"For Honor", TierClassics, pcConsole},
	{"Scott Pilgrim vs. The World", TierClassics, pcConsole},
	{"Child of Light", TierClassics, pcConsole},
	{"Valiant Hearts: The Great War", TierClassics, pcConsole},
	{"Rayman Legends", TierClassics, pcConsole},
	{"Steep", TierClassics, pcConsole},
	{"Trackmania", TierClassics, pcOnly},
	{"Trials Rising", TierClassics, pcConsole},
	{"South Park: The Fractured but Whole", TierClassics, pcConsole},
	{"South Park: The Stick of Truth", TierClassics, pcConsole},
}

func seedRecords() []provider.Record {
	out := make([]provider.Record, 0, len(seedList))
	for _, s := range seedList {
		out = append(out, provider.Record{
			Title:     s.Title,
			IDKind:    provider.IDKindUbisoft,
			Platforms: append([]provider.Platform(nil), s.Platforms...),
			Tier:      s.Tier,
		})
	}
	return out
}
