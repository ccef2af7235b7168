package domain

// AppID is a Steam store application identifier
type AppID uint32

// Storefront category ids that mark an app as playable together
const (
	CategoryMultiplayer   = 1
	CategoryCoop          = 9
	CategoryCrossPlatform = 27
)

// multiplayerCategories is the allow-list an app must intersect to qualify
// for a shared-game recommendation.
var multiplayerCategories = map[int]bool{
	CategoryMultiplayer:   true,
	CategoryCoop:          true,
	CategoryCrossPlatform: true,
}

// Platform identifies an OS the Steam store reports support flags for
type Platform string

// Known platforms
const (
	PlatformWindows Platform = "windows"
	PlatformMac     Platform = "mac"
	PlatformLinux   Platform = "linux"
)

// ParsePlatforms filters the given names down to the known platform set,
// dropping duplicates while preserving first-seen order.
func ParsePlatforms(names []string) []Platform {
	seen := make(map[Platform]bool, len(names))
	var platforms []Platform
	for _, name := range names {
		p := Platform(name)
		switch p {
		case PlatformWindows, PlatformMac, PlatformLinux:
			if !seen[p] {
				seen[p] = true
				platforms = append(platforms, p)
			}
		}
	}
	return platforms
}

// PlatformSupport holds the per-OS support flags from the storefront
type PlatformSupport struct {
	Windows bool `json:"windows"`
	Mac     bool `json:"mac"`
	Linux   bool `json:"linux"`
}

// Supports reports whether the given platform flag is set
func (p PlatformSupport) Supports(platform Platform) bool {
	switch platform {
	case PlatformWindows:
		return p.Windows
	case PlatformMac:
		return p.Mac
	case PlatformLinux:
		return p.Linux
	}
	return false
}

// AppSummary represents storefront metadata for a single app
type AppSummary struct {
	ID         AppID           `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Categories []int           `json:"categories"`
	Platforms  PlatformSupport `json:"platforms"`
}

// IsMultiplayerGame reports whether the app is a game carrying at least one
// category from the multiplayer allow-list.
func (a *AppSummary) IsMultiplayerGame() bool {
	if a.Type != "game" {
		return false
	}
	for _, c := range a.Categories {
		if multiplayerCategories[c] {
			return true
		}
	}
	return false
}

// SupportsAll reports whether every requested platform flag is set
func (a *AppSummary) SupportsAll(platforms []Platform) bool {
	for _, p := range platforms {
		if !a.Platforms.Supports(p) {
			return false
		}
	}
	return true
}
