package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/snsphoto/gallery-api/internal/config"
)

const defaultAPIBase = "https://api.github.com"

// GitHubStore persists documents as files in a GitHub repository through the
// contents API. The file blob SHA doubles as the revision token: a PUT with a
// stale sha is rejected by GitHub, which is the only concurrency primitive
// this store relies on.
type GitHubStore struct {
	apiBase string
	owner   string
	repo    string
	branch  string
	token   string
	client  *http.Client
}

// NewGitHubStore builds a store from config. The per-call timeout covers the
// whole round trip; a timed-out call surfaces as a TransientError.
func NewGitHubStore(cfg *config.GitHubConfig) *GitHubStore {
	return &GitHubStore{
		apiBase: defaultAPIBase,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// SetAPIBase overrides the API endpoint (used by tests against httptest).
func (s *GitHubStore) SetAPIBase(base string) {
	s.apiBase = strings.TrimRight(base, "/")
}

func (s *GitHubStore) contentsURL(key string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s.json", s.apiBase, s.owner, s.repo, key)
}

func (s *GitHubStore) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "gallery-api")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}

// contentsFile is the subset of the contents API response we read.
type contentsFile struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type putPayload struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

func (s *GitHubStore) Fetch(ctx context.Context, key string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.contentsURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "fetch", Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, statusError("fetch", resp)
	}

	var file contentsFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, &TransientError{Op: "fetch", Cause: fmt.Errorf("decode response: %w", err)}
	}
	// the API wraps base64 content at 60 columns
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decode content for %q: %w", key, err)
	}
	return &Snapshot{Content: raw, Token: file.SHA}, nil
}

func (s *GitHubStore) Write(ctx context.Context, key string, content []byte, token, message string) (string, error) {
	if message == "" {
		return "", fmt.Errorf("change description is required")
	}
	payload := putPayload{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     token,
		Branch:  s.branch,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode write payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(key), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build write request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &TransientError{Op: "write", Cause: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var pr putResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return "", &TransientError{Op: "write", Cause: fmt.Errorf("decode response: %w", err)}
		}
		return pr.Content.SHA, nil
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// 409 for branch races, 422 for sha mismatch; both mean someone
		// else wrote first
		return "", ErrConflict
	default:
		return "", statusError("write", resp)
	}
}

// statusError folds a non-success response into the error taxonomy. Server
// side and rate-limit statuses are retryable; anything else is not.
func statusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	cause := fmt.Errorf("github api: %s %s", resp.Status, strings.TrimSpace(string(snippet)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &TransientError{Op: op, Cause: cause}
	}
	return cause
}
