package arena

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"platformwar/arena/internal/gamesock"
	"platformwar/arena/internal/session"
	"platformwar/arena/internal/types"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// debateServer accepts one websocket client and hands the connection to
// the script.
func debateServer(script func(ctx context.Context, c *websocket.Conn)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		script(r.Context(), c)
		<-r.Context().Done()
	}))
}

func TestStartRequiresOpenChannel(t *testing.T) {
	store := session.New()
	client := New(context.Background(), "ws://127.0.0.1:1/ws", store, Options{})
	defer client.Close()

	err := client.Start(context.Background())
	if !errors.Is(err, gamesock.ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}
	if got := store.Snapshot().GameState; got != types.StateIdle {
		t.Fatalf("failed start must not transition state, got %s", got)
	}
}

func TestStartStreamsFullDebate(t *testing.T) {
	srv := debateServer(func(ctx context.Context, c *websocket.Conn) {
		// Wait for the start command before speaking.
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		if !strings.Contains(string(data), `"action":"start"`) {
			return
		}
		frames := []string{
			`{"type":"system","content":"debate begins"}`,
			`{"type":"turn_start","platform":"bilibili","name":"小B","round":1}`,
			`{"type":"fragment","content":"Hel"}`,
			`{{{ not json at all`,
			`{"type":"fragment","content":"lo"}`,
			`{"type":"turn_end"}`,
			`{"type":"info","content":"Max rounds reached. Debate finished."}`,
		}
		for _, f := range frames {
			if err := c.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	store := session.New()
	_ = store.SetTopic("ai")
	_ = store.SetPlatforms([]types.Platform{types.PlatformBilibili, types.PlatformZhihu})

	client := New(context.Background(), wsURL(srv), store, Options{
		APIKey:            "k",
		ReconnectInterval: 10 * time.Millisecond,
	})
	client.Connect()
	defer client.Close()

	waitFor(t, 2*time.Second, client.Connected)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Optimistic transition, before any server event arrives.
	if got := store.Snapshot().GameState; got != types.StateRunning {
		t.Fatalf("expected optimistic running state, got %s", got)
	}

	waitFor(t, 2*time.Second, func() bool {
		return store.Snapshot().GameState == types.StateStopped
	})

	snap := store.Snapshot()
	if len(snap.Transcript) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snap.Transcript))
	}
	e := snap.Transcript[0]
	if e.Content != "Hello" {
		t.Fatalf("malformed frame corrupted the stream: content %q", e.Content)
	}
	if e.Platform != types.PlatformBilibili || e.Round != 1 || e.Streaming {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if snap.ActiveSpeaker != "" {
		t.Fatalf("speaker still active after turn_end: %q", snap.ActiveSpeaker)
	}
	if !client.Connected() {
		t.Fatal("malformed frame must not drop the connection")
	}
}

func TestStopOptimistic(t *testing.T) {
	srv := debateServer(func(ctx context.Context, c *websocket.Conn) {
		for {
			if _, _, err := c.Read(ctx); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	store := session.New()
	store.SetGameState(types.StateRunning)
	client := New(context.Background(), wsURL(srv), store, Options{})
	client.Connect()
	defer client.Close()

	waitFor(t, 2*time.Second, client.Connected)
	if err := client.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if got := store.Snapshot().GameState; got != types.StateStopped {
		t.Fatalf("expected optimistic stopped state, got %s", got)
	}
}

func TestWatchdogForcesTurnEnd(t *testing.T) {
	srv := debateServer(func(ctx context.Context, c *websocket.Conn) {
		_ = c.Write(ctx, websocket.MessageText,
			[]byte(`{"type":"turn_start","platform":"zhihu","name":"Z","round":1}`))
		// Then stall: no fragments, no turn_end.
	})
	defer srv.Close()

	store := session.New()
	client := New(context.Background(), wsURL(srv), store, Options{
		TurnTimeout: 80 * time.Millisecond,
	})
	client.Connect()
	defer client.Close()

	waitFor(t, 2*time.Second, func() bool {
		return store.Snapshot().ActiveSpeaker == types.PlatformZhihu
	})
	waitFor(t, 2*time.Second, func() bool {
		return store.Snapshot().ActiveSpeaker == ""
	})
	e := store.Snapshot().Transcript[0]
	if e.Streaming {
		t.Fatalf("stalled entry not finalized: %+v", e)
	}
}

func TestResetClearsSession(t *testing.T) {
	store := session.New()
	client := New(context.Background(), "ws://127.0.0.1:1/ws", store, Options{})
	defer client.Close()

	store.SetGameState(types.StateStopped)
	store.AppendEntry(types.DialogueEntry{ID: "e1"})
	store.SetCurrentRound(2)

	client.Reset()
	snap := store.Snapshot()
	if snap.GameState != types.StateIdle || len(snap.Transcript) != 0 || snap.CurrentRound != 0 {
		t.Fatalf("reset left residue: %+v", snap)
	}
}

// Sanity check that the emitter speaks the exact legacy wire shape.
func TestStartPayloadShape(t *testing.T) {
	got := make(chan string, 1)
	srv := debateServer(func(ctx context.Context, c *websocket.Conn) {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		got <- string(data)
	})
	defer srv.Close()

	store := session.New()
	_ = store.SetTopic("topic")
	_ = store.SetPlatforms([]types.Platform{types.PlatformWeibo, types.PlatformZhihu})
	store.SetMaxRounds(4)

	client := New(context.Background(), wsURL(srv), store, Options{APIKey: "secret"})
	client.Connect()
	defer client.Close()

	waitFor(t, 2*time.Second, client.Connected)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case frame := <-got:
		for _, want := range []string{`"action":"start"`, `"topic":"topic"`, `"api_key":"secret"`, `"max_rounds":4`, `"weibo"`, `"zhihu"`} {
			if !strings.Contains(frame, want) {
				t.Fatalf("start frame missing %s: %s", want, frame)
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received start command")
	}
}
