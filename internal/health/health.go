package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"platformwar/arena/internal/config"
)

type CheckResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ms"`
	Error   string        `json:"error,omitempty"`
}

type Status struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (s Status) String() string {
	status := "OK"
	if !s.OK {
		status = "FAIL"
	}
	out := fmt.Sprintf("Health: %s\n", status)
	for _, c := range s.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		out += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
		if c.Error != "" {
			out += fmt.Sprintf(" - %s", c.Error)
		}
		out += "\n"
	}
	return out
}

// CheckAll probes the debate backend's HTTP base and websocket endpoint.
func CheckAll(ctx context.Context, cfg config.Config) Status {
	checks := []CheckResult{
		checkHTTP(ctx, cfg),
		checkWebsocket(ctx, cfg),
	}

	allOK := true
	for _, c := range checks {
		if !c.OK {
			allOK = false
		}
	}

	return Status{
		OK:        allOK,
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

func checkHTTP(ctx context.Context, cfg config.Config) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "backend_http"}

	if cfg.Server.APIBase == "" {
		result.Error = "ARENA_API_BASE not set"
		result.Latency = time.Since(start)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, "GET", cfg.Server.APIBase+"/", nil)
	if err != nil {
		result.Error = fmt.Sprintf("request build failed: %v", err)
		result.Latency = time.Since(start)
		return result
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Latency = time.Since(start)
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	result.Latency = time.Since(start)

	if resp.StatusCode != 200 {
		result.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return result
	}

	result.OK = true
	return result
}

func checkWebsocket(ctx context.Context, cfg config.Config) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "backend_ws"}

	if cfg.Server.WSURL == "" {
		result.Error = "ARENA_WS_URL not set"
		result.Latency = time.Since(start)
		return result
	}

	dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dctx, cfg.Server.WSURL, nil)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = fmt.Sprintf("dial failed: %v", err)
		return result
	}
	_ = conn.Close(websocket.StatusNormalClosure, "health check")

	result.OK = true
	return result
}
