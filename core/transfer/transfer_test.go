package transfer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDownloader(cfg Config) (*Downloader, *[]time.Duration) {
	d := NewDownloader(cfg, nil, zap.NewNop())

	// Record the backoff schedule instead of actually sleeping.
	slept := &[]time.Duration{}
	d.sleep = func(_ context.Context, wait time.Duration) error {
		*slept = append(*slept, wait)
		return nil
	}
	return d, slept
}

// rangeAwareHandler serves content honoring Range requests the way a real
// CDN does: 206 with a Content-Range total, or 200 for a full request.
func rangeAwareHandler(content []byte, requests *[]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng := r.Header.Get("Range")
		if requests != nil {
			*requests = append(*requests, rng)
		}

		if strings.HasPrefix(rng, "bytes=") {
			var offset int
			fmt.Sscanf(rng, "bytes=%d-", &offset)
			w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, len(content)-1, len(content)))
			w.Header().Set("Content-Length", fmt.Sprint(len(content)-offset))
			w.WriteHeader(http.StatusPartialContent)
			w.Write(content[offset:])
			return
		}

		w.Header().Set("Content-Length", fmt.Sprint(len(content)))
		w.Write(content)
	}
}

// TestFetch_FreshDownload tests a plain download with no preexisting state.
func TestFetch_FreshDownload(t *testing.T) {
	content := []byte(strings.Repeat("congress media ", 100))
	srv := httptest.NewServer(rangeAwareHandler(content, nil))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "Opening Event.mp4")
	d, _ := newTestDownloader(Config{})

	err := d.Fetch(context.Background(), Job{URL: srv.URL, OutputPath: out, Description: "Opening Event.mp4"})
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = os.Stat(out + PartSuffix)
	assert.True(t, os.IsNotExist(err), "partial file must be gone after finalization")
}

// TestFetch_ResumesPartialFile tests that an existing .part file is extended
// in place: the prefix on disk survives untouched and only the remaining
// range is requested.
func TestFetch_ResumesPartialFile(t *testing.T) {
	content := []byte(strings.Repeat("0123456789", 50)) // 500 bytes
	var requests []string
	srv := httptest.NewServer(rangeAwareHandler(content, &requests))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "talk.mp4")

	// A deliberately different prefix proves the engine appends instead of
	// rewriting from scratch.
	prefix := []byte(strings.Repeat("X", 200))
	require.NoError(t, os.WriteFile(out+PartSuffix, prefix, 0644))

	d, _ := newTestDownloader(Config{})
	err := d.Fetch(context.Background(), Job{URL: srv.URL, OutputPath: out, Description: "talk.mp4"})
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Equal(t, "bytes=200-", requests[0])

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, got, len(content))
	assert.Equal(t, prefix, got[:200], "resumed prefix must be byte-identical to what was on disk")
	assert.Equal(t, content[200:], got[200:])
}

// TestFetch_RangeIgnoredRestartsFromScratch tests that a 200 response to a
// range request discards the stale resume offset.
func TestFetch_RangeIgnoredRestartsFromScratch(t *testing.T) {
	content := []byte(strings.Repeat("fresh", 100))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always serve the whole file, ignoring any Range header.
		w.Header().Set("Content-Length", fmt.Sprint(len(content)))
		w.Write(content)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "talk.mp4")
	require.NoError(t, os.WriteFile(out+PartSuffix, []byte("stale partial data"), 0644))

	d, _ := newTestDownloader(Config{})
	err := d.Fetch(context.Background(), Job{URL: srv.URL, OutputPath: out, Description: "talk.mp4"})
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, content, got, "stale partial data must not survive an ignored range request")
}

// TestFetch_RetryExhaustion tests that a permanently failing source is
// retried with the 5s/10s backoff schedule and reported as failed, with the
// partial file preserved.
func TestFetch_RetryExhaustion(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "talk.mp4")
	require.NoError(t, os.WriteFile(out+PartSuffix, []byte("partial"), 0644))

	d, slept := newTestDownloader(Config{MaxRetries: 3, BackoffSeconds: 5})
	err := d.Fetch(context.Background(), Job{URL: srv.URL, OutputPath: out, Description: "talk.mp4"})

	require.Error(t, err)
	assert.Equal(t, 3, hits, "every attempt must reach the server")
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, *slept)

	// The partial file survives for a future resumed attempt.
	got, rerr := os.ReadFile(out + PartSuffix)
	require.NoError(t, rerr)
	assert.Equal(t, []byte("partial"), got)

	_, serr := os.Stat(out)
	assert.True(t, os.IsNotExist(serr))
}

// TestFetch_SizeVerificationFailure tests that a download below 99% of the
// declared size is rejected and retried with the .part file kept.
func TestFetch_SizeVerificationFailure(t *testing.T) {
	short := []byte("way too short")
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Length", fmt.Sprint(len(short)))
		w.Write(short)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "talk.mp4")
	d, slept := newTestDownloader(Config{MaxRetries: 2, BackoffSeconds: 5})

	err := d.Fetch(context.Background(), Job{
		URL:          srv.URL,
		OutputPath:   out,
		Description:  "talk.mp4",
		ExpectedSize: 10_000,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "size mismatch")
	assert.Equal(t, 2, hits)
	assert.Len(t, *slept, 1)

	_, serr := os.Stat(out + PartSuffix)
	assert.NoError(t, serr, "undersized partial file must be kept")
}

// TestFetch_ToleratesSlightlyShortSize tests the 99% acceptance window.
func TestFetch_ToleratesSlightlyShortSize(t *testing.T) {
	content := []byte(strings.Repeat("a", 995))
	srv := httptest.NewServer(rangeAwareHandler(content, nil))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "talk.mp4")
	d, _ := newTestDownloader(Config{})

	// Declared size 1000, actual 995: within tolerance.
	err := d.Fetch(context.Background(), Job{
		URL:          srv.URL,
		OutputPath:   out,
		Description:  "talk.mp4",
		ExpectedSize: 1000,
	})
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.EqualValues(t, 995, info.Size())
}

// TestFetch_InterruptedStreamLeavesResumablePart tests that a connection
// dropped mid-body leaves the flushed bytes behind as resumable state.
func TestFetch_InterruptedStreamLeavesResumablePart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		w.Write([]byte(strings.Repeat("b", 70000)))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		panic(http.ErrAbortHandler)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "talk.mp4")
	d, _ := newTestDownloader(Config{MaxRetries: 1})

	err := d.Fetch(context.Background(), Job{URL: srv.URL, OutputPath: out, Description: "talk.mp4"})
	require.Error(t, err)

	info, serr := os.Stat(out + PartSuffix)
	require.NoError(t, serr)
	assert.Positive(t, info.Size())
}

// TestTotalFromContentRange tests header parsing corner cases.
func TestTotalFromContentRange(t *testing.T) {
	assert.EqualValues(t, 1000, totalFromContentRange("bytes 100-999/1000"))
	assert.EqualValues(t, 0, totalFromContentRange("bytes 100-999/*"))
	assert.EqualValues(t, 0, totalFromContentRange(""))
	assert.EqualValues(t, 0, totalFromContentRange("garbage"))
}
