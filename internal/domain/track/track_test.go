package track

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  Record
		extraKeys []string
	}{
		{
			name:  "string id",
			input: `{"songId":"1","songName":"A","artist_name":"X","album_name":"Y"}`,
			expected: Record{
				ID:     "1",
				Name:   "A",
				Artist: "X",
				Album:  "Y",
			},
		},
		{
			name:  "numeric id",
			input: `{"songId":1795287563,"songName":"A"}`,
			expected: Record{
				ID:   "1795287563",
				Name: "A",
			},
		},
		{
			name:      "unknown fields are kept",
			input:     `{"songId":"7","album_logo":"http://img/a.jpg","length":245}`,
			expected:  Record{ID: "7"},
			extraKeys: []string{"album_logo", "length"},
		},
		{
			name:      "non-string name is kept as extra",
			input:     `{"songId":"7","songName":12}`,
			expected:  Record{ID: "7"},
			extraKeys: []string{"songName"},
		},
		{
			name:     "empty object",
			input:    `{}`,
			expected: Record{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			require.NoError(t, json.Unmarshal([]byte(tt.input), &r))

			assert.Equal(t, tt.expected.ID, r.ID)
			assert.Equal(t, tt.expected.Name, r.Name)
			assert.Equal(t, tt.expected.Artist, r.Artist)
			assert.Equal(t, tt.expected.Album, r.Album)

			keys := make([]string, 0, len(r.Extra))
			for k := range r.Extra {
				keys = append(keys, k)
			}
			assert.ElementsMatch(t, tt.extraKeys, keys)
		})
	}
}

func TestRecord_UnmarshalJSON_Invalid(t *testing.T) {
	var r Record
	err := json.Unmarshal([]byte(`["not","an","object"]`), &r)
	assert.Error(t, err)
}

func TestRecord_ExtraFieldsSurviveRoundTrip(t *testing.T) {
	input := `{"songId":"42","songName":"A","artist_name":"X","album_name":"Y","album_logo":"http://img/a.jpg","tags":["pop"]}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(input), &r))

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestRecord_IsEmpty(t *testing.T) {
	assert.True(t, Record{}.IsEmpty())
	assert.False(t, Record{ID: "1"}.IsEmpty())
	assert.False(t, Record{Name: "A"}.IsEmpty())
	assert.False(t, Record{Extra: map[string]json.RawMessage{"k": json.RawMessage(`1`)}}.IsEmpty())
}

func TestRecord_KnownFieldsKeepUpstreamEncoding(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "numeric id", input: `{"songId":7,"songName":"A"}`},
		{name: "empty known field", input: `{"songId":"7","songName":"A","album_name":"","x":1}`},
		{name: "numeric id and empty field", input: `{"songId":7,"songName":"A","album_name":"","x":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			require.NoError(t, json.Unmarshal([]byte(tt.input), &r))
			assert.Equal(t, "7", r.ID)

			out, err := json.Marshal(r)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}
}

func TestRecord_ChangedFieldDropsUpstreamEncoding(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"songId":7,"album_name":""}`), &r))

	r.ID = "8"
	r.Album = "B"
	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"songId":"8","album_name":"B"}`, string(out))
}

func TestRecord_EmptyKnownFieldIsNotEmptyRecord(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"songName":""}`), &r))
	assert.False(t, r.IsEmpty())

	require.NoError(t, json.Unmarshal([]byte(`{}`), &r))
	assert.True(t, r.IsEmpty())
}
