/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transcript

import "fmt"

// Issue is a data problem that does not stop playback.
type Issue struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	IssueEmpty          = "empty"
	IssueDuplicateName  = "duplicate_name"
	IssueUnknownRole    = "unknown_role"
	IssueMissingSpeaker = "missing_speaker"
)

// Validate reports inconsistencies in t. Each missing speaker is reported
// once, at its first line.
func Validate(t *Transcript) []Issue {
	var issues []Issue

	if t.Len() == 0 {
		issues = append(issues, Issue{
			Kind:    IssueEmpty,
			Message: ErrEmptyTranscript.Error(),
		})
	}
	if t == nil {
		return issues
	}

	roster := NewRoster(t.Players)

	for _, name := range roster.Duplicates() {
		issues = append(issues, Issue{
			Kind:    IssueDuplicateName,
			Message: fmt.Sprintf("player name %q appears more than once", name),
		})
	}

	for _, p := range t.Players {
		if !p.Role.Known() {
			issues = append(issues, Issue{
				Kind:    IssueUnknownRole,
				Message: fmt.Sprintf("player %q has an unrecognized role", p.Name),
			})
		}
	}

	seen := make(map[string]bool)
	for i, e := range t.Dialogue {
		if seen[e.Speaker] {
			continue
		}
		seen[e.Speaker] = true

		if _, ok := roster.byName[e.Speaker]; !ok {
			issues = append(issues, Issue{
				Kind:    IssueMissingSpeaker,
				Message: fmt.Sprintf("line %d: speaker %q is not on the roster", i+1, e.Speaker),
			})
		}
	}

	return issues
}
