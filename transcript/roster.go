/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transcript

import "sort"

// Roster resolves dialogue speakers to players.
type Roster struct {
	byName map[string][]Player
}

func NewRoster(players []Player) *Roster {
	r := &Roster{
		byName: make(map[string][]Player, len(players)),
	}

	for _, p := range players {
		r.byName[p.Name] = append(r.byName[p.Name], p)
	}

	return r
}

// Lookup returns the single player called name. Shared names are not
// resolved to either seat.
func (r *Roster) Lookup(name string) (Player, error) {
	if r == nil {
		return Player{}, &MissingPlayerError{Name: name}
	}

	matches := r.byName[name]
	switch len(matches) {
	case 0:
		return Player{}, &MissingPlayerError{Name: name}
	case 1:
		return matches[0], nil
	default:
		ids := make([]int, 0, len(matches))
		for _, p := range matches {
			ids = append(ids, p.ID)
		}

		return Player{}, &AmbiguousPlayerError{Name: name, IDs: ids}
	}
}

// Duplicates returns the names held by more than one player.
func (r *Roster) Duplicates() []string {
	if r == nil {
		return nil
	}

	var names []string
	for name, players := range r.byName {
		if len(players) > 1 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names
}
