/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package transcript holds the recorded werewolf game a replay is built from:
// the player roster, the ordered dialogue, and the sources that fetch it from
// the game-generation backend, a Redis cache, or local files.
package transcript

// Player is a single seat at the table. Name is the key dialogue events refer to.
type Player struct {
	ID     int    `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Role   Role   `json:"role" yaml:"role"`
	Avatar string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Win    int    `json:"win,omitempty" yaml:"win,omitempty"`
	Loss   int    `json:"loss,omitempty" yaml:"loss,omitempty"`
}

// Event types emitted by the backend log parser. Other values pass through untouched.
const (
	TypeQuestion     = "Question"
	TypeConfirmation = "Confirmation"
	TypeAnnouncement = "Announcement"
	TypeInstruction  = "Instruction"
	TypePreparation  = "Preparation"
	TypeAction       = "Action"
	TypeSay          = "Say"
)

// DialogueEvent is one line of the game: who spoke, what kind of line it was, and what was said.
type DialogueEvent struct {
	Speaker string `json:"speaker" yaml:"speaker"`
	Type    string `json:"type" yaml:"type"`
	Content string `json:"content" yaml:"content"`
}

// Transcript is a complete recorded game. Dialogue is in chronological order
// and is never re-sorted.
type Transcript struct {
	Players  []Player        `json:"players" yaml:"players"`
	Dialogue []DialogueEvent `json:"dialogue" yaml:"dialogue"`
}

// Len returns the number of dialogue events.
func (t *Transcript) Len() int {
	if t == nil {
		return 0
	}

	return len(t.Dialogue)
}

// Request identifies a transcript on the backend.
type Request struct {
	Round   int `json:"round"`
	Players int `json:"players"`
}

const (
	DefaultRound   = 1
	DefaultPlayers = 8
)

// withDefaults fills zero fields with the backend's defaults.
func (r Request) withDefaults() Request {
	if r.Round <= 0 {
		r.Round = DefaultRound
	}
	if r.Players <= 0 {
		r.Players = DefaultPlayers
	}

	return r
}
