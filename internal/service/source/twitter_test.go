package source

import (
	"testing"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPostID(t *testing.T) {
	cases := []struct {
		input string
		id    string
		ok    bool
	}{
		{"https://twitter.com/alice/status/12345", "12345", true},
		{"https://x.com/alice/status/67890", "67890", true},
		{"https://x.com/alice/status/67890?s=20", "67890", true},
		{"https://example.com/status/555", "555", true},
		{"98765", "98765", true},
		{"  98765  ", "98765", true},
		{"https://twitter.com/alice", "", false},
		{"not a url", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		id, ok := ExtractPostID(tc.input)
		assert.Equal(t, tc.ok, ok, tc.input)
		assert.Equal(t, tc.id, id, tc.input)
	}
}

func TestToPostMapsPointCoordinates(t *testing.T) {
	client := &TwitterClient{}

	tweet := &twitter.TweetObj{
		ID:        "1",
		AuthorID:  "a1",
		Text:      "eclipse from the park",
		CreatedAt: "2026-03-01T10:00:00Z",
		Geo: &twitter.TweetGeoObj{
			// GeoJSON order: longitude, latitude
			Coordinates: twitter.TweetGeoCoordinatesObj{
				Type:        "Point",
				Coordinates: []float64{77.21, 28.61},
			},
		},
	}

	p := client.toPost(tweet, nil, nil)
	require.NotNil(t, p.Location)
	assert.InDelta(t, 28.61, p.Location.Latitude, 1e-9)
	assert.InDelta(t, 77.21, p.Location.Longitude, 1e-9)
}

func TestToPostMapsPlaceBoundingBox(t *testing.T) {
	client := &TwitterClient{}

	tweet := &twitter.TweetObj{
		ID:        "2",
		AuthorID:  "a1",
		Text:      "eclipse downtown",
		CreatedAt: "2026-03-01T10:00:00Z",
		Geo:       &twitter.TweetGeoObj{PlaceID: "place-1"},
	}
	places := map[string]*twitter.PlaceObj{
		"place-1": {
			ID: "place-1",
			Geo: &twitter.PlaceGeoObj{
				Type: "Feature",
				BBox: []float64{77.0, 28.0, 78.0, 29.0},
			},
		},
	}

	p := client.toPost(tweet, nil, places)
	require.NotNil(t, p.Location)
	assert.InDelta(t, 28.5, p.Location.Latitude, 1e-9)
	assert.InDelta(t, 77.5, p.Location.Longitude, 1e-9)
}

func TestToPostWithoutGeo(t *testing.T) {
	client := &TwitterClient{}

	p := client.toPost(&twitter.TweetObj{
		ID:        "3",
		AuthorID:  "a1",
		Text:      "no location here",
		CreatedAt: "2026-03-01T10:00:00Z",
	}, nil, nil)
	assert.Nil(t, p.Location)

	// A tagged place that was not returned in the includes maps to nothing
	p = client.toPost(&twitter.TweetObj{
		ID:        "4",
		AuthorID:  "a1",
		Text:      "dangling place tag",
		CreatedAt: "2026-03-01T10:00:00Z",
		Geo:       &twitter.TweetGeoObj{PlaceID: "unknown"},
	}, nil, map[string]*twitter.PlaceObj{})
	assert.Nil(t, p.Location)
}
