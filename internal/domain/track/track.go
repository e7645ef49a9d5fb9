// Package track provides the Track domain entity.
package track

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Upstream field names of the xiami track payload.
const (
	FieldID     = "songId"
	FieldName   = "songName"
	FieldArtist = "artist_name"
	FieldAlbum  = "album_name"
)

// Record represents a track as delivered by the xiami playlist endpoint.
// Fields other than the four known ones are kept verbatim in Extra and
// written back unchanged.
type Record struct {
	ID     string // Track ID (songId)
	Name   string // Track name (songName)
	Artist string // Artist name (artist_name)
	Album  string // Album name (album_name)

	Extra map[string]json.RawMessage // Other upstream fields

	// raw holds the upstream encoding of known fields that a plain string
	// would not reproduce: numeric ids and present but empty values.
	raw map[string]json.RawMessage
}

// IsEmpty reports whether the record carries no data at all.
// Stores return an empty record for ids they have never seen.
func (r Record) IsEmpty() bool {
	return r.ID == "" && r.Name == "" && r.Artist == "" && r.Album == "" &&
		len(r.Extra) == 0 && len(r.raw) == 0
}

func (r Record) known() map[string]string {
	return map[string]string{
		FieldID:     r.ID,
		FieldName:   r.Name,
		FieldArtist: r.Artist,
		FieldAlbum:  r.Album,
	}
}

// MarshalJSON encodes the record as a flat upstream-shaped object. A known
// field keeps its upstream encoding while its value is unchanged.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+4)
	for k, v := range r.Extra {
		out[k] = v
	}
	for field, value := range r.known() {
		if orig, ok := r.raw[field]; ok && decodesTo(field, orig, value) {
			out[field] = orig
			continue
		}
		if value != "" {
			out[field] = value
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an upstream track object.
// songId may be a string or a number.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "failed to decode track record")
	}

	*r = Record{}
	dst := map[string]*string{
		FieldID:     &r.ID,
		FieldName:   &r.Name,
		FieldArtist: &r.Artist,
		FieldAlbum:  &r.Album,
	}
	for field, target := range dst {
		v, ok := raw[field]
		if !ok {
			continue
		}
		value, ok := decodeField(field, v)
		if !ok {
			// not a string, keep it as-is
			continue
		}
		*target = value
		delete(raw, field)
		if value == "" || !isCanonical(v, value) {
			if r.raw == nil {
				r.raw = make(map[string]json.RawMessage)
			}
			r.raw[field] = append(json.RawMessage(nil), v...)
		}
	}
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

func decodeField(field string, v json.RawMessage) (string, bool) {
	if field == FieldID {
		return decodeID(v)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodesTo(field string, v json.RawMessage, value string) bool {
	got, ok := decodeField(field, v)
	return ok && got == value
}

// isCanonical reports whether v is exactly the JSON string encoding of value.
func isCanonical(v json.RawMessage, value string) bool {
	enc, err := json.Marshal(value)
	if err != nil {
		return false
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, v); err != nil {
		return false
	}
	return bytes.Equal(compact.Bytes(), enc)
}

// decodeID accepts a JSON string or number and returns its string form.
func decodeID(v json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err == nil && n != "" {
		return n.String(), true
	}
	return "", false
}
