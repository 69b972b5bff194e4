package types

import "time"

// Platform identifies one of the debate personas.
type Platform string

const (
	PlatformBilibili Platform = "bilibili"
	PlatformWeibo    Platform = "weibo"
	PlatformZhihu    Platform = "zhihu"
)

// AllPlatforms returns the closed roster in display order.
func AllPlatforms() []Platform {
	return []Platform{PlatformBilibili, PlatformWeibo, PlatformZhihu}
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformBilibili, PlatformWeibo, PlatformZhihu:
		return true
	}
	return false
}

// GameState is the lifecycle state of a debate session.
type GameState string

const (
	StateIdle    GameState = "idle"
	StateRunning GameState = "running"
	StatePaused  GameState = "paused" // reserved, no transition reaches it
	StateStopped GameState = "stopped"
)

// DialogueEntry is one speaking turn in the transcript. Content grows by
// append while Streaming is true and is frozen at turn end.
type DialogueEntry struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker"`
	Platform  Platform  `json:"platform"`
	Content   string    `json:"content"`
	Round     int       `json:"round"`
	Timestamp time.Time `json:"timestamp"`
	Streaming bool      `json:"streaming"`
}

// DebateConfig is the user-selected setup sent with a start command.
type DebateConfig struct {
	Topic     string     `json:"topic"`
	Platforms []Platform `json:"platforms"`
	APIKey    string     `json:"api_key,omitempty"`
	MaxRounds int        `json:"max_rounds"`
}
