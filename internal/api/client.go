// Package api is the HTTP client for the debate backend's auxiliary
// endpoints: knowledge-base upload, community-graph data and the
// post-debate personality analysis. Failures here stay with the caller
// and never touch the dialogue core.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"platformwar/arena/internal/types"
)

type Client interface {
	FetchConfig(ctx context.Context) (*BackendConfig, error)
	FetchPlatformData(ctx context.Context, platform types.Platform) (*PlatformData, error)
	UploadKnowledgeBase(ctx context.Context, platform types.Platform, filename string, file io.Reader) (*UploadResult, error)
	AnalyzePersonality(ctx context.Context, topic string, history []HistoryEntry, apiKey string) (map[string]PersonaAnalysis, error)
}

// BackendConfig is the roster discovery response.
type BackendConfig struct {
	Platforms        map[string]string `json:"platforms"`
	DefaultPlatforms []string          `json:"default_platforms"`
	HasAPIKey        bool              `json:"has_api_key"`
}

// PlatformData is the node/link graph plus the community mapping for one
// platform's knowledge base.
type PlatformData struct {
	Graph       Graph                `json:"graph"`
	Communities map[string]Community `json:"communities"`
}

type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

type GraphNode struct {
	ID string `json:"id"`
}

type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Community keys are arbitrary IDs assigned by the analysis backend.
// Relations is passed through opaquely; its shape varies by extractor
// version.
type Community struct {
	Members        []string        `json:"members"`
	CentralMembers []string        `json:"central_members"`
	Relations      json.RawMessage `json:"relations,omitempty"`
	Summary        string          `json:"summary"`
}

type UploadResult struct {
	Message  string `json:"message"`
	Platform string `json:"platform"`
	Status   string `json:"status"`
}

// HistoryEntry is one speaker/content pair sent to the analysis endpoint.
type HistoryEntry struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

type PersonaAnalysis struct {
	Persona  string `json:"persona"`
	Analysis string `json:"analysis"`
}

type HTTPClient struct {
	http *http.Client
	base string
}

func NewClient(base string) *HTTPClient {
	return &HTTPClient{
		http: &http.Client{Timeout: 60 * time.Second},
		base: base,
	}
}

func (c *HTTPClient) FetchConfig(ctx context.Context) (*BackendConfig, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.base+"/api/config", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("fetch config: %s: %s", resp.Status, string(b))
	}
	var out BackendConfig
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) FetchPlatformData(ctx context.Context, platform types.Platform) (*PlatformData, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.base+"/api/data/"+string(platform), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("fetch platform data: %s: %s", resp.Status, string(b))
	}
	var out PlatformData
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UploadKnowledgeBase(ctx context.Context, platform types.Platform, filename string, file io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, file); err != nil {
		return nil, err
	}
	if err := mw.WriteField("platform_name", string(platform)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.base+"/api/upload_knowledge_base", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("upload knowledge base: %s: %s", resp.Status, string(b))
	}
	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AnalyzePersonality(ctx context.Context, topic string, history []HistoryEntry, apiKey string) (map[string]PersonaAnalysis, error) {
	payload := map[string]any{
		"topic":   topic,
		"history": history,
	}
	if apiKey != "" {
		payload["api_key"] = apiKey
	}
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(payload); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.base+"/api/analyze_personality", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("analyze personality: %s: %s", resp.Status, string(b))
	}
	var out map[string]PersonaAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
