package transfer

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// PartSuffix is appended to the final file name while a transfer is in
// flight.
const PartSuffix = ".part"

// sizeTolerance accepts downloads whose size is at least 99% of the expected
// size; some feeds report slightly inaccurate lengths.
const sizeTolerance = 0.99

const copyBufferSize = 64 * 1024

// Config holds configuration for the transfer engine.
type Config struct {
	// MaxRetries is the number of attempts per file before giving up.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// BackoffSeconds is the base retry delay; it doubles per attempt.
	BackoffSeconds int `mapstructure:"backoff_seconds" default:"5"`
	// TimeoutSeconds bounds connection setup and time-to-first-byte.
	// The body stream itself is not bounded, large files take hours.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// Job describes one object to download.
type Job struct {
	// URL is the remote object location.
	URL string
	// OutputPath is the final local path; the in-flight file is
	// OutputPath + ".part".
	OutputPath string
	// Description identifies the transfer in progress reports and logs.
	Description string
	// ExpectedSize is the declared size in bytes, if the listing provided
	// one. Zero means "verify against response headers only".
	ExpectedSize int64
}

// Downloader performs resumable HTTP downloads. It is safe for concurrent
// use across distinct output paths; the same path must never be fetched
// twice concurrently.
type Downloader struct {
	client     *http.Client
	reporter   Reporter
	log        *zap.Logger
	maxRetries int
	backoff    time.Duration

	// sleep is replaced in tests to observe the backoff schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDownloader creates a transfer engine. A nil reporter disables progress
// reporting.
func NewDownloader(cfg Config, reporter Reporter, log *zap.Logger) *Downloader {
	if reporter == nil {
		reporter = NopReporter{}
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	backoff := time.Duration(cfg.BackoffSeconds) * time.Second
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	// Bound connection setup and response headers, but never the body:
	// a multi-gigabyte talk recording legitimately streams for a long time.
	client := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeoutDuration,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   timeoutDuration,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: timeoutDuration,
		},
	}

	return &Downloader{
		client:     client,
		reporter:   reporter,
		log:        log,
		maxRetries: maxRetries,
		backoff:    backoff,
		sleep:      sleepContext,
	}
}

// Fetch downloads the job's URL to its output path. It resumes an existing
// partial file, retries with exponential backoff, and finalizes with an
// atomic rename. On terminal failure the partial file is kept so a later
// invocation can resume it.
func (d *Downloader) Fetch(ctx context.Context, job Job) error {
	partPath := job.OutputPath + PartSuffix

	var lastErr error
	for attempt := 0; attempt < d.maxRetries; attempt++ {
		err := d.attempt(ctx, job, partPath)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < d.maxRetries-1 {
			wait := d.backoff * (1 << attempt)
			d.log.Warn("transfer attempt failed",
				zap.String("file", job.Description),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", d.maxRetries),
				zap.Duration("retry_in", wait),
				zap.Error(err),
			)
			if serr := d.sleep(ctx, wait); serr != nil {
				return serr
			}
			continue
		}

		d.log.Warn("transfer failed, partial file kept for future resume",
			zap.String("file", job.Description),
			zap.Error(err),
		)
	}

	return fmt.Errorf("download of %s failed after %d attempts: %w", job.Description, d.maxRetries, lastErr)
}

// attempt runs one pass of the transfer state machine: probe the partial
// file, request the remaining range, stream to disk, verify, finalize.
func (d *Downloader) attempt(ctx context.Context, job Job, partPath string) error {
	var resumeOffset int64
	if info, err := os.Stat(partPath); err == nil {
		resumeOffset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return err
	}
	if resumeOffset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeOffset))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var total int64
	flags := os.O_CREATE | os.O_WRONLY

	switch resp.StatusCode {
	case http.StatusPartialContent:
		total = totalFromContentRange(resp.Header.Get("Content-Range"))
		if total == 0 && resp.ContentLength > 0 {
			total = resumeOffset + resp.ContentLength
		}
		flags |= os.O_APPEND
		if resumeOffset > 0 {
			d.log.Info("resuming transfer",
				zap.String("file", job.Description),
				zap.String("offset", humanize.IBytes(uint64(resumeOffset))),
			)
		}

	case http.StatusOK:
		if resp.ContentLength > 0 {
			total = resp.ContentLength
		}
		if resumeOffset > 0 {
			// The server ignored the range request; start over.
			d.log.Debug("range request ignored, restarting transfer",
				zap.String("file", job.Description))
			resumeOffset = 0
		}
		flags |= os.O_TRUNC

	default:
		return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, job.URL)
	}

	f, err := os.OpenFile(partPath, flags, 0644)
	if err != nil {
		return err
	}

	streamErr := d.stream(ctx, f, resp.Body, job.Description, resumeOffset, total)
	if cerr := f.Close(); streamErr == nil {
		streamErr = cerr
	}
	if streamErr != nil {
		return streamErr
	}

	info, err := os.Stat(partPath)
	if err != nil {
		return err
	}

	expected := job.ExpectedSize
	if expected <= 0 {
		expected = total
	}
	if expected > 0 && float64(info.Size()) < float64(expected)*sizeTolerance {
		// Keep the partial file; it may still be resumable.
		return fmt.Errorf("size mismatch for %s: %s of %s",
			job.Description, humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(expected)))
	}

	return os.Rename(partPath, job.OutputPath)
}

// stream copies the response body to the partial file in chunks, reporting
// progress with an instantaneous transfer rate.
func (d *Downloader) stream(ctx context.Context, w io.Writer, r io.Reader, description string, offset, total int64) error {
	buf := make([]byte, copyBufferSize)
	transferred := offset
	lastReport := time.Now()
	lastBytes := transferred

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			transferred += int64(n)

			if now := time.Now(); now.Sub(lastReport) >= 200*time.Millisecond {
				rate := float64(transferred-lastBytes) / now.Sub(lastReport).Seconds()
				d.reporter.Progress(description, transferred, total, rate)
				lastReport = now
				lastBytes = transferred
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	d.reporter.Progress(description, transferred, total, 0)
	return nil
}

// totalFromContentRange extracts the total size from a Content-Range header
// of the form "bytes 100-999/1000". Returns 0 if absent or unparseable.
func totalFromContentRange(header string) int64 {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return 0
	}
	total, err := strconv.ParseInt(header[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return total
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
