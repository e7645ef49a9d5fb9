// Package playlist provides the Playlist domain entity.
package playlist

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/osa030/xiamibox/internal/domain/track"
)

// Playlist represents one playlist response from the xiami player page.
// It is transient and lives only for one fetch-and-store cycle.
type Playlist struct {
	Tracks []track.Record // Tracks in the playlist
}

// response mirrors the upstream envelope: {"data":{"trackList":[...]}}.
type response struct {
	Data *struct {
		TrackList []track.Record `json:"trackList"`
	} `json:"data"`
}

// Parse decodes a playlist response body.
// A missing data object or track list yields an empty playlist.
func Parse(body []byte) (*Playlist, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to parse playlist response")
	}

	p := &Playlist{}
	if resp.Data != nil {
		p.Tracks = resp.Data.TrackList
	}
	return p, nil
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}
