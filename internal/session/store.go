// Package session holds the single source of truth for one debate run.
// The dialogue machine is the only writer of the streaming fields; user
// actions write the setup fields. Readers get copies, never references.
package session

import (
	"errors"
	"fmt"
	"sync"

	"platformwar/arena/internal/types"
)

var (
	ErrNotIdle         = errors.New("session is not idle")
	ErrUnknownPlatform = errors.New("unknown platform")
)

const (
	minRoundBudget = 1
	maxRoundBudget = 10
)

// Store is the shared session state. All mutation goes through methods;
// Snapshot returns a deep copy so the presentation side never observes a
// half-applied fragment.
type Store struct {
	mu sync.RWMutex

	gameState     types.GameState
	topic         string
	selected      []types.Platform
	maxRounds     int
	currentRound  int
	activeSpeaker types.Platform // empty when no turn is in progress
	transcript    []types.DialogueEntry
}

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	GameState     types.GameState
	Topic         string
	Platforms     []types.Platform
	MaxRounds     int
	CurrentRound  int
	ActiveSpeaker types.Platform
	Transcript    []types.DialogueEntry
}

func New() *Store {
	return &Store{
		gameState: types.StateIdle,
		selected:  []types.Platform{types.PlatformBilibili, types.PlatformZhihu},
		maxRounds: 3,
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		GameState:     s.gameState,
		Topic:         s.topic,
		MaxRounds:     s.maxRounds,
		CurrentRound:  s.currentRound,
		ActiveSpeaker: s.activeSpeaker,
		Platforms:     make([]types.Platform, len(s.selected)),
		Transcript:    make([]types.DialogueEntry, len(s.transcript)),
	}
	copy(snap.Platforms, s.selected)
	copy(snap.Transcript, s.transcript)
	return snap
}

func (s *Store) GameState() types.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gameState
}

// Config assembles the debate setup for a start command. The credential
// is not stored here; the caller supplies it at send time.
func (s *Store) Config(apiKey string) types.DebateConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	platforms := make([]types.Platform, len(s.selected))
	copy(platforms, s.selected)
	return types.DebateConfig{
		Topic:     s.topic,
		Platforms: platforms,
		APIKey:    apiKey,
		MaxRounds: s.maxRounds,
	}
}

// SetTopic changes the debate topic. Only allowed while idle.
func (s *Store) SetTopic(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gameState != types.StateIdle {
		return ErrNotIdle
	}
	s.topic = topic
	return nil
}

// SetPlatforms replaces the roster, preserving order and dropping
// duplicates. Every entry must belong to the closed enumeration.
func (s *Store) SetPlatforms(platforms []types.Platform) error {
	seen := make(map[types.Platform]bool, len(platforms))
	roster := make([]types.Platform, 0, len(platforms))
	for _, p := range platforms {
		if !p.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		roster = append(roster, p)
	}
	s.mu.Lock()
	s.selected = roster
	s.mu.Unlock()
	return nil
}

// SetMaxRounds sets the round budget, clamped to the allowed 1..10 range.
func (s *Store) SetMaxRounds(n int) {
	if n < minRoundBudget {
		n = minRoundBudget
	}
	if n > maxRoundBudget {
		n = maxRoundBudget
	}
	s.mu.Lock()
	s.maxRounds = n
	s.mu.Unlock()
}

// Reset returns the session to idle with an empty transcript. Idempotent:
// the result is identical regardless of prior state. Topic, roster and
// round budget survive a reset.
func (s *Store) Reset() {
	s.mu.Lock()
	s.gameState = types.StateIdle
	s.transcript = nil
	s.currentRound = 0
	s.activeSpeaker = ""
	s.mu.Unlock()
}

// The methods below form the machine-facing write surface. Only the
// dialogue machine (and the command emitter's optimistic transitions)
// may call them.

func (s *Store) SetGameState(st types.GameState) {
	s.mu.Lock()
	s.gameState = st
	s.mu.Unlock()
}

func (s *Store) SetActiveSpeaker(p types.Platform) {
	s.mu.Lock()
	s.activeSpeaker = p
	s.mu.Unlock()
}

func (s *Store) ClearActiveSpeaker() {
	s.mu.Lock()
	s.activeSpeaker = ""
	s.mu.Unlock()
}

// SetCurrentRound advances the round counter. Rounds never go backwards
// within a session; a stale or duplicate number is ignored.
func (s *Store) SetCurrentRound(round int) {
	s.mu.Lock()
	if round > s.currentRound {
		s.currentRound = round
	}
	s.mu.Unlock()
}

// AppendEntry adds a new transcript entry. This is the only way the
// transcript grows.
func (s *Store) AppendEntry(entry types.DialogueEntry) {
	s.mu.Lock()
	s.transcript = append(s.transcript, entry)
	s.mu.Unlock()
}

// AppendEntryContent appends a streamed chunk to the entry with the given
// ID. Returns false if no such entry exists.
func (s *Store) AppendEntryContent(id, chunk string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transcript {
		if s.transcript[i].ID == id {
			s.transcript[i].Content += chunk
			return true
		}
	}
	return false
}

// FinishEntry marks the entry as no longer streaming. A non-empty
// fullContent overwrites whatever the fragments accumulated, reconciling
// any drift against the server's authoritative text.
func (s *Store) FinishEntry(id, fullContent string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.transcript {
		if s.transcript[i].ID == id {
			if fullContent != "" {
				s.transcript[i].Content = fullContent
			}
			s.transcript[i].Streaming = false
			return true
		}
	}
	return false
}
