// Package dialogue folds the decoded server event stream into session
// mutations. The machine is purely reactive: no timers, no outbound I/O.
package dialogue

import (
	"log"
	"time"

	"github.com/google/uuid"

	"platformwar/arena/internal/protocol"
	"platformwar/arena/internal/types"
)

// Mutator is the narrow write surface the machine needs on the session
// store. Keeping it an interface here is the capability boundary: nothing
// else in the machine can reach the user-facing setters.
type Mutator interface {
	SetGameState(types.GameState)
	SetActiveSpeaker(types.Platform)
	ClearActiveSpeaker()
	SetCurrentRound(int)
	AppendEntry(types.DialogueEntry)
	AppendEntryContent(id, chunk string) bool
	FinishEntry(id, fullContent string) bool
}

// Machine tracks whose turn is streaming and applies events in arrival
// order. Fragment and turn_end are keyed by the active entry's ID, never
// by transcript position.
type Machine struct {
	store Mutator

	// ID of the entry currently receiving fragments; empty between turns.
	activeEntryID string
}

func New(store Mutator) *Machine {
	return &Machine{store: store}
}

// ActiveEntryID reports the entry currently streaming, if any.
func (m *Machine) ActiveEntryID() string { return m.activeEntryID }

// Reset drops the active entry reference. Called alongside a session
// reset so a late fragment cannot target a discarded transcript.
func (m *Machine) Reset() { m.activeEntryID = "" }

// HandleEvent applies one decoded event. Callers must serialize calls;
// ordering is the arrival order of frames from the channel.
func (m *Machine) HandleEvent(ev protocol.ServerEvent) {
	switch ev.Type {
	case protocol.EventSystem:
		log.Printf("[dialogue] system: %s", ev.Content)

	case protocol.EventTurnStart:
		m.handleTurnStart(ev)

	case protocol.EventFragment:
		m.handleFragment(ev)

	case protocol.EventTurnEnd:
		m.handleTurnEnd(ev)

	case protocol.EventInfo:
		log.Printf("[dialogue] info: %s", ev.Content)
		if ev.Content == protocol.CompletionSentinel {
			metricCompletions.WithLabelValues("sentinel").Inc()
			m.store.SetGameState(types.StateStopped)
		}

	case protocol.EventSessionComplete:
		metricCompletions.WithLabelValues("typed").Inc()
		m.store.SetGameState(types.StateStopped)

	case protocol.EventError:
		// The server decides fatality; any error event ends the session.
		log.Printf("[dialogue] server error: %s", ev.Content)
		metricServerErrors.Inc()
		m.store.SetGameState(types.StateStopped)

	default:
		// Unknown event types are a forward-compatibility no-op.
	}
}

func (m *Machine) handleTurnStart(ev protocol.ServerEvent) {
	// A turn_start with a turn still streaming means the server skipped a
	// turn_end; finalize the old entry so it stops receiving fragments.
	if m.activeEntryID != "" {
		m.store.FinishEntry(m.activeEntryID, "")
	}

	round := ev.Round
	if round == 0 {
		round = 1
	}
	speaker := ev.Name
	if speaker == "" {
		speaker = "Unknown"
	}

	m.store.SetActiveSpeaker(ev.Platform)
	m.store.SetCurrentRound(round)

	entry := types.DialogueEntry{
		ID:        uuid.New().String(),
		Speaker:   speaker,
		Platform:  ev.Platform,
		Round:     round,
		Timestamp: time.Now().UTC(),
		Streaming: true,
	}
	m.store.AppendEntry(entry)
	m.activeEntryID = entry.ID
	metricTurns.Inc()
}

func (m *Machine) handleFragment(ev protocol.ServerEvent) {
	if m.activeEntryID == "" {
		// Fragment before any turn_start: malformed-server defense.
		metricOrphanFragments.Inc()
		return
	}
	if ev.Content == "" {
		return
	}
	if m.store.AppendEntryContent(m.activeEntryID, ev.Content) {
		metricFragments.Inc()
	} else {
		metricOrphanFragments.Inc()
	}
}

func (m *Machine) handleTurnEnd(ev protocol.ServerEvent) {
	if m.activeEntryID != "" {
		m.store.FinishEntry(m.activeEntryID, ev.FullContent)
		m.activeEntryID = ""
	}
	m.store.ClearActiveSpeaker()
}
