package charmhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/canonical/charm-release/internal/config"
	apperrors "github.com/canonical/charm-release/internal/errors"
)

// DefaultAPIBase is the production Charmhub API endpoint.
const DefaultAPIBase = "https://api.charmhub.io"

// refreshQueryLimit bounds the concurrent refresh queries issued while
// assembling one revision matrix. The queries are read-only; test-job
// submission stays strictly sequential elsewhere.
const refreshQueryLimit = 4

// Client queries the Charmhub refresh API for published charm revisions.
type Client struct {
	http    *http.Client
	apiBase string
	bases   []string
	archs   []string
	log     zerolog.Logger
}

// NewClient returns a Charmhub client for the configured bases and
// architectures.
func NewClient(cfg config.CharmhubConfig, log zerolog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		apiBase: DefaultAPIBase,
		bases:   cfg.Bases,
		archs:   cfg.Archs,
		log:     log.With().Str("component", "charmhub").Logger(),
	}
}

// WithAPIBase overrides the API endpoint. Used by tests.
func (c *Client) WithAPIBase(base string) *Client {
	c.apiBase = base
	return c
}

// refreshRequest is the refresh API payload for a single install query.
type refreshRequest struct {
	Actions []refreshAction `json:"actions"`
	Context []struct{}      `json:"context"`
}

type refreshAction struct {
	Action      string      `json:"action"`
	Base        refreshBase `json:"base"`
	Channel     string      `json:"channel"`
	Name        string      `json:"name"`
	InstanceKey string      `json:"instance-key"`
}

type refreshBase struct {
	Architecture string `json:"architecture"`
	Channel      string `json:"channel"`
	Name         string `json:"name"`
}

type refreshResponse struct {
	Results []struct {
		Charm struct {
			Revision *int `json:"revision"`
		} `json:"charm"`
	} `json:"results"`
}

// RevisionMatrix queries every configured (arch, base) combination for the
// charm in the channel and returns the assembled matrix. Transport-level
// failures wrap ErrQueryFailed; a cell with no published artifact is simply
// absent from the matrix.
func (c *Client) RevisionMatrix(ctx context.Context, charm, channel string) (*RevisionMatrix, error) {
	c.log.Info().Str("charm", charm).Str("channel", channel).Msg("querying charmhub revisions")

	matrix := NewRevisionMatrix()
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshQueryLimit)
	for _, base := range c.bases {
		for _, arch := range c.archs {
			g.Go(func() error {
				revision, err := c.findRevision(ctx, charm, channel, arch, base)
				if err != nil {
					return err
				}
				if revision == "" {
					return nil
				}
				mu.Lock()
				matrix.Set(arch, base, revision)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matrix, nil
}

// findRevision queries the refresh API for a single (arch, base) cell.
// Returns "" if no artifact is published for the cell.
func (c *Client) findRevision(ctx context.Context, charm, channel, arch, base string) (string, error) {
	payload := refreshRequest{
		Actions: []refreshAction{{
			Action:      "install",
			Base:        refreshBase{Architecture: arch, Channel: base, Name: "ubuntu"},
			Channel:     channel,
			Name:        charm,
			InstanceKey: "query",
		}},
		Context: []struct{}{},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode refresh request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v2/charms/refresh", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to build refresh request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("charmhub refresh for %s %s (%s, %s): %v: %w", charm, channel, arch, base, err, apperrors.ErrQueryFailed)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("charmhub refresh for %s %s (%s, %s) returned %d: %w", charm, channel, arch, base, resp.StatusCode, apperrors.ErrQueryFailed)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("charmhub refresh read failed: %v: %w", err, apperrors.ErrQueryFailed)
	}

	var decoded refreshResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", fmt.Errorf("%w: unparseable refresh response: %v", apperrors.ErrInvariant, err)
	}
	if len(decoded.Results) == 0 {
		return "", fmt.Errorf("%w: refresh response carries no results", apperrors.ErrInvariant)
	}
	if decoded.Results[0].Charm.Revision == nil {
		return "", nil
	}
	return strconv.Itoa(*decoded.Results[0].Charm.Revision), nil
}
