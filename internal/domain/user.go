package domain

import "strconv"

// SteamID is a 64-bit Steam community identifier
type SteamID uint64

// String returns the decimal representation of the ID
func (id SteamID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseSteamID parses a decimal Steam ID string
func ParseSteamID(s string) (SteamID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidRequest
	}
	return SteamID(v), nil
}

// Visibility is a Steam community profile visibility level
type Visibility int

// Profile visibility levels as reported by the Steam Web API
const (
	VisibilityPrivate     Visibility = 1
	VisibilityFriendsOnly Visibility = 2
	VisibilityPublic      Visibility = 3
)

// User represents a Steam community profile
type User struct {
	ID         SteamID    `json:"id"`
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	AvatarURL  string     `json:"avatar_url,omitempty"`
	ProfileURL string     `json:"profile_url,omitempty"`
}

// IsPublic reports whether the profile is visible to everyone. Friend and
// game lists may only be fetched from upstream for public profiles.
func (u *User) IsPublic() bool {
	return u.Visibility >= VisibilityPublic
}
