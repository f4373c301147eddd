package releases

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>39c3 (mp4-hq)</title>
    <item>
      <title> Opening Event </title>
      <enclosure url="https://cdn.example.org/39c3/opening.mp4" length="1000" type="video/mp4"/>
    </item>
    <item>
      <title>Talk Without Enclosure</title>
    </item>
    <item>
      <title>Closing Event</title>
      <enclosure url="https://cdn.example.org/39c3/closing.mp4" length="not-a-number" type="video/mp4"/>
    </item>
  </channel>
</rss>`

// TestList_ParsesFeed tests feed parsing, order preservation and the
// handling of missing enclosures and bogus lengths.
func TestList_ParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	src := NewSource(srv.URL, 5, zap.NewNop())
	items, err := src.List(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "Opening Event", items[0].Title, "title is trimmed")
	assert.Equal(t, "https://cdn.example.org/39c3/opening.mp4", items[0].URL)
	assert.Equal(t, int64(1000), items[0].Length)
	assert.Equal(t, "Closing Event", items[1].Title)
	assert.Zero(t, items[1].Length, "bogus length falls back to zero")
}

// TestList_HTTPError tests that non-200 responses surface as errors.
func TestList_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewSource(srv.URL, 5, zap.NewNop())
	_, err := src.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

// TestList_MalformedXML tests that broken feeds surface a parse error.
func TestList_MalformedXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<rss><channel><item>"))
	}))
	defer srv.Close()

	src := NewSource(srv.URL, 5, zap.NewNop())
	_, err := src.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse feed")
}
