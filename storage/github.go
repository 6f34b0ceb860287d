package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ruteri/ddssec-engine/interfaces"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubBackend implements a read-only object store over files in a GitHub
// repository directory, fetched through the contents API. It lets published
// CA certificates be loaded straight from a repository.
type GitHubBackend struct {
	owner       string
	repo        string
	dir         string
	ref         string
	apiBase     string
	client      *http.Client
	log         *slog.Logger
	locationURI string
}

// GitHubContent is the subset of the contents API response used here.
type GitHubContent struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
}

// NewGitHubBackend creates a store reading owner/repo/dir at ref. An empty
// ref means the default branch.
func NewGitHubBackend(owner, repo, dir, ref string, log *slog.Logger) *GitHubBackend {
	dir = strings.Trim(dir, "/")
	uri := fmt.Sprintf("github://%s/%s/%s", owner, repo, dir)
	if ref != "" {
		uri += "?ref=" + url.QueryEscape(ref)
	}
	return &GitHubBackend{
		owner:       owner,
		repo:        repo,
		dir:         dir,
		ref:         ref,
		apiBase:     defaultGitHubAPI,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		locationURI: uri,
	}
}

// Load fetches the object file from the repository.
func (b *GitHubBackend) Load(ctx context.Context, name string) ([]byte, error) {
	if err := interfaces.ValidateObjectName(name); err != nil {
		return nil, err
	}

	content, err := b.fetchContent(ctx, path.Join(b.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if content.Type != "file" {
		return nil, fmt.Errorf("%w: %s is a %s", interfaces.ErrObjectNotFound, name, content.Type)
	}
	if content.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected content encoding: %s", content.Encoding)
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	b.log.Debug("Loaded object from GitHub",
		slog.String("object", name),
		slog.String("sha", content.SHA),
		slog.Int("size", len(data)))

	return data, nil
}

// Store is not supported by this read-only backend.
func (b *GitHubBackend) Store(ctx context.Context, name string, data []byte) error {
	return fmt.Errorf("%w: GitHub backend", interfaces.ErrReadOnlyStore)
}

// Available checks if the repository is reachable.
func (b *GitHubBackend) Available(ctx context.Context) bool {
	req, err := b.newRequest(ctx, fmt.Sprintf("%s/repos/%s/%s", b.apiBase, b.owner, b.repo))
	if err != nil {
		b.log.Debug("Failed to create request", "err", err)
		return false
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.log.Debug("GitHub backend unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.log.Debug("GitHub backend unavailable",
			slog.String("status", resp.Status))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *GitHubBackend) Name() string {
	return fmt.Sprintf("github-%s-%s", b.owner, b.repo)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *GitHubBackend) LocationURI() string {
	return b.locationURI
}

func (b *GitHubBackend) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	return req, nil
}

func (b *GitHubBackend) fetchContent(ctx context.Context, filePath string) (*GitHubContent, error) {
	rawURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", b.apiBase, b.owner, b.repo, filePath)
	if b.ref != "" {
		rawURL += "?ref=" + url.QueryEscape(b.ref)
	}

	req, err := b.newRequest(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrObjectNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	var content GitHubContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	return &content, nil
}
