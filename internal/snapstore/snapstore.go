// Package snapstore provides the snap store info API client, snap track
// management and the snapcraft release command used by the risk-ladder
// promoter.
package snapstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/canonical/charm-release/internal/charmhub"
	"github.com/canonical/charm-release/internal/config"
	apperrors "github.com/canonical/charm-release/internal/errors"
)

// DefaultInfoBase is the production snap store info endpoint.
const DefaultInfoBase = "https://api.snapcraft.io/v2/snaps/info/"

// DefaultTracksBase is the track creation endpoint. Snap track creation is
// really served by the Charmhub API; the operation stays in this package
// because it manages snap tracks regardless of which host answers.
const DefaultTracksBase = "https://api.charmhub.io/v1/snap"

// Channel identifies one (track, risk) slot of the snap store channel map.
type Channel struct {
	Name         string     `json:"name"`
	Track        string     `json:"track"`
	Risk         string     `json:"risk"`
	Architecture string     `json:"architecture"`
	ReleasedAt   *time.Time `json:"released-at"`
}

// MappedChannel is one channel map entry: the channel slot plus the revision
// and version currently published there.
type MappedChannel struct {
	Channel  Channel `json:"channel"`
	Revision int     `json:"revision"`
	Version  string  `json:"version"`
}

// SnapInfo is the store's public view of a snap.
type SnapInfo struct {
	Name       string          `json:"name"`
	ChannelMap []MappedChannel `json:"channel-map"`
}

// Client queries the snap store info API and manages snap tracks.
type Client struct {
	http       *http.Client
	infoBase   string
	tracksBase string
	log        zerolog.Logger
}

// NewClient returns a snap store client.
func NewClient(cfg config.SnapConfig, log zerolog.Logger) *Client {
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		infoBase:   DefaultInfoBase,
		tracksBase: DefaultTracksBase,
		log:        log.With().Str("component", "snapstore").Logger(),
	}
}

// WithEndpoints overrides the API endpoints. Used by tests.
func (c *Client) WithEndpoints(infoBase, tracksBase string) *Client {
	c.infoBase = infoBase
	c.tracksBase = tracksBase
	return c
}

// Info returns the published channel map of a snap.
func (c *Client) Info(ctx context.Context, snap string) (*SnapInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.infoBase+snap, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build snap info request")
	}
	req.Header.Set("Snap-Device-Series", "16")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snap info for %s: %v: %w", snap, err, apperrors.ErrQueryFailed)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snap info for %s returned %d: %w", snap, resp.StatusCode, apperrors.ErrQueryFailed)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("snap info read failed: %v: %w", err, apperrors.ErrQueryFailed)
	}

	var info SnapInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: unparseable snap info response: %v", apperrors.ErrInvariant, err)
	}
	return &info, nil
}

// TrackExists reports whether the snap already has a channel map entry for
// the track.
func (c *Client) TrackExists(ctx context.Context, snap, track string) (bool, error) {
	info, err := c.Info(ctx, snap)
	if err != nil {
		return false, err
	}
	for _, entry := range info.ChannelMap {
		if entry.Channel.Track == track {
			return true, nil
		}
	}
	return false, nil
}

// EnsureTrack creates the track if the snap does not have it yet.
func (c *Client) EnsureTrack(ctx context.Context, snap, track string) error {
	c.log.Info().Str("snap", snap).Str("track", track).Msg("ensuring track")
	exists, err := c.TrackExists(ctx, snap, track)
	if err != nil {
		return err
	}
	if exists {
		c.log.Info().Str("snap", snap).Str("track", track).Msg("track already exists")
		return nil
	}
	return c.CreateTrack(ctx, snap, track)
}

// CreateTrack creates the track. Fails if the track already exists.
func (c *Client) CreateTrack(ctx context.Context, snap, track string) error {
	c.log.Info().Str("snap", snap).Str("track", track).Msg("creating track")

	macaroon, err := charmhub.AuthMacaroon()
	if err != nil {
		return err
	}

	body, err := json.Marshal([]map[string]string{{"name": track}})
	if err != nil {
		return apperrors.Wrap(err, "failed to encode track creation request")
	}

	url := fmt.Sprintf("%s/%s/tracks", c.tracksBase, snap)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, "failed to build track creation request")
	}
	req.Header.Set("Authorization", "Macaroon "+macaroon)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("track creation for %s/%s: %v: %w", snap, track, err, apperrors.ErrQueryFailed)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("track creation for %s/%s returned %d: %w", snap, track, resp.StatusCode, apperrors.ErrQueryFailed)
	}
	return nil
}
