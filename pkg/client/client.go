// Package client is a small Go client for the progress API. ModuleSaver
// plugs it into pkg/autosave.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/calmsteps-backend/internal/models"
	"github.com/AnshRaj112/calmsteps-backend/internal/progress"
	"github.com/AnshRaj112/calmsteps-backend/pkg/autosave"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// ConflictError is returned when a PATCH names a stale version.
type ConflictError struct {
	Current progress.ModuleView
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("module %s changed elsewhere (now version %d)", e.Current.ID, e.Current.Version)
}

type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient replaces the default client, e.g. for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.hc = hc
	return c
}

type envelope struct {
	Success bool                  `json:"success"`
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Module  progress.ModuleView   `json:"module"`
	Modules []progress.ModuleView `json:"modules"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (envelope, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return envelope{}, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return envelope{}, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	switch {
	case resp.StatusCode == http.StatusConflict && env.Module.ID != uuid.Nil:
		return env, &ConflictError{Current: env.Module}
	case resp.StatusCode >= 300:
		return env, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	return env, nil
}

func (c *Client) Modules(ctx context.Context, userID uuid.UUID) ([]progress.ModuleView, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/modules/"+userID.String(), nil)
	return env.Modules, err
}

// PatchModule sends a partial progress document. version may be nil.
func (c *Client) PatchModule(ctx context.Context, moduleID uuid.UUID, version *int64, patch models.ProgressPatch) (progress.ModuleView, error) {
	body := map[string]interface{}{"userProgress": patch}
	if version != nil {
		body["version"] = *version
	}
	env, err := c.do(ctx, http.MethodPatch, "/api/modules/"+moduleID.String(), body)
	return env.Module, err
}

func (c *Client) ToggleActivity(ctx context.Context, moduleID uuid.UUID, activityID string) (progress.ModuleView, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/modules/"+moduleID.String()+"/activities/"+activityID+"/toggle", nil)
	return env.Module, err
}

func (c *Client) FinishModule(ctx context.Context, moduleID uuid.UUID) (progress.ModuleView, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/modules/"+moduleID.String()+"/finish", nil)
	return env.Module, err
}

// WorksheetKey is the autosave key for one activity's worksheet. Each key must
// carry the whole worksheet, since a newer payload replaces an older one.
func WorksheetKey(moduleID uuid.UUID, activityID string) string {
	return moduleID.String() + "/" + activityID
}

// NotesKey is the autosave key for a module's free-text notes.
func NotesKey(moduleID uuid.UUID) string {
	return moduleID.String() + "/" + models.ModuleNotesKey
}

// parseKey splits a key built by WorksheetKey or NotesKey. A bare module id
// addresses the notes.
func parseKey(key string) (uuid.UUID, string, error) {
	idPart, scope, found := strings.Cut(key, "/")
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("autosave key %q is not a module key", key)
	}
	if !found {
		scope = models.ModuleNotesKey
	}
	if scope == "" {
		return uuid.Nil, "", fmt.Errorf("autosave key %q has an empty activity", key)
	}
	return id, scope, nil
}

// checkScope rejects patches that reach outside the key they were saved under.
func checkScope(scope string, patch models.ProgressPatch) error {
	if scope == models.ModuleNotesKey {
		if patch.ModuleNotes == nil || len(patch.Activities) != 0 {
			return errors.New("notes key must carry only moduleNotes")
		}
		return nil
	}
	if _, ok := patch.Activities[scope]; !ok || len(patch.Activities) != 1 || patch.ModuleNotes != nil {
		return fmt.Errorf("worksheet key must carry only activity %q", scope)
	}
	return nil
}

// ModuleSaver saves autosave payloads as module PATCHes. Keys come from
// WorksheetKey or NotesKey and Payload.Data must be a models.ProgressPatch
// touching only that key's activity or notes. It remembers the last version
// seen per module and sends it with each save; saves to one module run one at
// a time so sibling worksheets do not trip over each other's version bump.
type ModuleSaver struct {
	client *Client

	// OnConflict decides what to do when another device saved first. Returning
	// true adopts the server's version and retries the same patch; false
	// leaves the snapshot unsaved until the user reloads. Nil means false.
	OnConflict func(current progress.ModuleView) bool

	mu       sync.Mutex
	versions map[uuid.UUID]int64
	inflight map[uuid.UUID]*sync.Mutex
}

func NewModuleSaver(c *Client) *ModuleSaver {
	return &ModuleSaver{
		client:   c,
		versions: make(map[uuid.UUID]int64),
		inflight: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Track records the version from a module the caller already loaded.
func (s *ModuleSaver) Track(m progress.ModuleView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[m.ID] = m.Version
}

func (s *ModuleSaver) moduleLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.inflight[id]
	if !ok {
		l = &sync.Mutex{}
		s.inflight[id] = l
	}
	return l
}

func (s *ModuleSaver) Save(ctx context.Context, p autosave.Payload) error {
	moduleID, scope, err := parseKey(p.Key)
	if err != nil {
		return autosave.Permanent(err)
	}
	patch, ok := p.Data.(models.ProgressPatch)
	if !ok {
		return autosave.Permanent(fmt.Errorf("autosave payload for %s is %T, want models.ProgressPatch", p.Key, p.Data))
	}
	if err := checkScope(scope, patch); err != nil {
		return autosave.Permanent(fmt.Errorf("autosave payload for %s: %w", p.Key, err))
	}

	l := s.moduleLock(moduleID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	v, known := s.versions[moduleID]
	s.mu.Unlock()
	var version *int64
	if known {
		version = &v
	}

	m, err := s.client.PatchModule(ctx, moduleID, version, patch)
	var conflict *ConflictError
	var apiErr *APIError
	switch {
	case err == nil:
		s.Track(m)
		return nil
	case errors.As(err, &conflict):
		if s.OnConflict != nil && s.OnConflict(conflict.Current) {
			s.Track(conflict.Current)
			return err
		}
		return autosave.Permanent(err)
	case errors.As(err, &apiErr) && !apiErr.Temporary():
		return autosave.Permanent(err)
	}
	// Network errors, 429 and 5xx are retried.
	return err
}
