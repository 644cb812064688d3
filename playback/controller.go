/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package playback turns a transcript into a timeline a viewer can step
// through or auto-play.
//
// A Controller is either idle or playing at some position. Playing arms a
// one-shot timer that advances one line and re-arms from inside its own
// callback, until the last line is reached. Every change to the position or
// play mode cancels the pending timer first and bumps a session token, so a
// callback that was already in flight when it was cancelled sees a stale
// token and does nothing.
package playback

import (
	"sync"
	"time"

	"github.com/Seednode/werewolf-replay/transcript"
)

// DefaultDelay is the autoplay interval between lines.
const DefaultDelay = 2 * time.Second

// Change names what caused a state notification.
type Change string

const (
	ChangeLoad         Change = "load"
	ChangeStepForward  Change = "step_forward"
	ChangeStepBackward Change = "step_backward"
	ChangeSeek         Change = "seek"
	ChangePlay         Change = "play"
	ChangePause        Change = "pause"
	ChangeStop         Change = "stop"
	ChangeAdvance      Change = "advance"
	ChangeEnd          Change = "end"
)

// State is a snapshot of the timeline.
type State struct {
	Position int    `json:"position"`
	Length   int    `json:"length"`
	Playing  bool   `json:"playing"`
	AtStart  bool   `json:"at_start"`
	AtEnd    bool   `json:"at_end"`
	Enabled  bool   `json:"enabled"`
	Revision uint64 `json:"revision"`
}

type Config struct {
	// Delay between autoplay advances; DefaultDelay when zero.
	Delay time.Duration

	// Scheduler arms the autoplay timer; SystemScheduler when nil.
	Scheduler Scheduler

	// Listener is called after every change with the controller lock held.
	// It must not call back into the Controller.
	Listener func(Change, State)
}

// Controller owns the playback state for one transcript at a time.
// It is safe for concurrent use.
type Controller struct {
	delay    time.Duration
	sched    Scheduler
	listener func(Change, State)

	mu       sync.Mutex
	players  []transcript.Player
	dialogue []transcript.DialogueEvent
	roster   *transcript.Roster
	position int
	playing  bool
	timer    Timer
	session  uint64
	revision uint64
}

func New(cfg Config) *Controller {
	c := &Controller{
		delay:    cfg.Delay,
		sched:    cfg.Scheduler,
		listener: cfg.Listener,
		roster:   transcript.NewRoster(nil),
	}

	if c.delay <= 0 {
		c.delay = DefaultDelay
	}
	if c.sched == nil {
		c.sched = SystemScheduler{}
	}

	return c
}

// Load replaces the transcript and returns to the first line, paused.
// A nil transcript empties the controller.
func (c *Controller) Load(t *transcript.Transcript) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()

	c.players = nil
	c.dialogue = nil
	if t != nil {
		c.players = append([]transcript.Player(nil), t.Players...)
		c.dialogue = append([]transcript.DialogueEvent(nil), t.Dialogue...)
	}
	c.roster = transcript.NewRoster(c.players)
	c.position = 0
	c.playing = false

	c.notifyLocked(ChangeLoad)
}

// StepForward moves one line ahead and pauses. It does nothing on the last line.
func (c *Controller) StepForward() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.position >= c.lastLocked() {
		return false
	}

	c.cancelLocked()
	c.position++
	c.playing = false

	c.notifyLocked(ChangeStepForward)

	return true
}

// StepBackward moves one line back and pauses. It does nothing on the first line.
func (c *Controller) StepBackward() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.dialogue) == 0 || c.position <= 0 {
		return false
	}

	c.cancelLocked()
	c.position--
	c.playing = false

	c.notifyLocked(ChangeStepBackward)

	return true
}

// Seek jumps to index, clamped to the timeline. The play mode is kept: a
// playing timeline restarts its countdown from the new line, and stops if
// that line is the last one.
func (c *Controller) Seek(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.dialogue) == 0 {
		return false
	}

	target := min(max(index, 0), c.lastLocked())
	if target == c.position {
		return false
	}

	c.cancelLocked()
	c.position = target

	if c.playing {
		if c.position >= c.lastLocked() {
			c.playing = false
		} else {
			c.armLocked()
		}
	}

	c.notifyLocked(ChangeSeek)

	return true
}

// TogglePlay starts or pauses autoplay. There is nothing to play from the last line.
func (c *Controller) TogglePlay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.position >= c.lastLocked() {
		return false
	}

	c.cancelLocked()
	c.playing = !c.playing

	change := ChangePause
	if c.playing {
		change = ChangePlay
		c.armLocked()
	}

	c.notifyLocked(change)

	return true
}

// Stop pauses autoplay if it is running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playing {
		return false
	}

	c.cancelLocked()
	c.playing = false

	c.notifyLocked(ChangeStop)

	return true
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stateLocked()
}

// VisibleEvents returns every line up to and including the current one.
func (c *Controller) VisibleEvents() []transcript.DialogueEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.visibleLocked()
}

// Players returns the loaded roster in transcript order.
func (c *Controller) Players() []transcript.Player {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]transcript.Player(nil), c.players...)
}

// LookupPlayer resolves a speaker name against the loaded roster.
func (c *Controller) LookupPlayer(name string) (transcript.Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.roster.Lookup(name)
}

// Snapshot returns the state, the visible lines and the roster to resolve
// their speakers, read under one lock. The roster is never mutated.
func (c *Controller) Snapshot() (State, []transcript.DialogueEvent, *transcript.Roster) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stateLocked(), c.visibleLocked(), c.roster
}

func (c *Controller) advance(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.session || !c.playing {
		return
	}

	c.timer = nil
	c.position++

	if c.position >= c.lastLocked() {
		c.playing = false
		c.notifyLocked(ChangeEnd)

		return
	}

	c.armLocked()
	c.notifyLocked(ChangeAdvance)
}

func (c *Controller) armLocked() {
	token := c.session
	c.timer = c.sched.AfterFunc(c.delay, func() {
		c.advance(token)
	})
}

func (c *Controller) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.session++
}

// lastLocked is the final valid index, or -1 when there is no dialogue.
func (c *Controller) lastLocked() int {
	return len(c.dialogue) - 1
}

func (c *Controller) visibleLocked() []transcript.DialogueEvent {
	if len(c.dialogue) == 0 {
		return nil
	}

	return append([]transcript.DialogueEvent(nil), c.dialogue[:c.position+1]...)
}

func (c *Controller) stateLocked() State {
	n := len(c.dialogue)

	return State{
		Position: c.position,
		Length:   n,
		Playing:  c.playing,
		AtStart:  c.position == 0,
		AtEnd:    n == 0 || c.position == n-1,
		Enabled:  n > 0,
		Revision: c.revision,
	}
}

func (c *Controller) notifyLocked(change Change) {
	c.revision++

	if c.listener != nil {
		c.listener(change, c.stateLocked())
	}
}
