/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transcript

import "strings"

// Role is the closed set of seats a werewolf game deals out.
type Role int

const (
	RoleUnknown Role = iota
	RoleGuard
	RoleSeer
	RoleWerewolf
	RoleVillager
	RoleWitch
	RoleModerator
)

// Roles lists every known role in display order.
var Roles = []Role{
	RoleGuard,
	RoleSeer,
	RoleWerewolf,
	RoleVillager,
	RoleWitch,
	RoleModerator,
}

func (r Role) String() string {
	switch r {
	case RoleGuard:
		return "Guard"
	case RoleSeer:
		return "Seer"
	case RoleWerewolf:
		return "Werewolf"
	case RoleVillager:
		return "Villager"
	case RoleWitch:
		return "Witch"
	case RoleModerator:
		return "Moderator"
	default:
		return "Unknown"
	}
}

// Known reports whether r is one of the dealt roles rather than the placeholder.
func (r Role) Known() bool {
	return r > RoleUnknown && r <= RoleModerator
}

// ParseRole matches a role name case-insensitively. Unrecognized names
// return RoleUnknown and false.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(s, r.String()) {
			return r, true
		}
	}

	return RoleUnknown, false
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText never fails: a role the viewer has no artwork for still
// has to load, so it becomes RoleUnknown.
func (r *Role) UnmarshalText(text []byte) error {
	*r, _ = ParseRole(string(text))

	return nil
}

// Style is how a role is drawn in the viewer.
type Style struct {
	Color  string `json:"color"`
	Avatar string `json:"avatar"`
}

// Style returns the display style for r. Every role, including RoleUnknown,
// has an entry.
func (r Role) Style() Style {
	switch r {
	case RoleGuard:
		return Style{Color: "#dbeafe", Avatar: "guard.svg"}
	case RoleSeer:
		return Style{Color: "#f3e8ff", Avatar: "seer.svg"}
	case RoleWerewolf:
		return Style{Color: "#fee2e2", Avatar: "werewolf.svg"}
	case RoleVillager:
		return Style{Color: "#dcfce7", Avatar: "villager.svg"}
	case RoleWitch:
		return Style{Color: "#fef9c3", Avatar: "witch.svg"}
	case RoleModerator:
		return Style{Color: "#f3f4f6", Avatar: "moderator.svg"}
	default:
		return Style{Color: "#e5e7eb", Avatar: "unknown.svg"}
	}
}
