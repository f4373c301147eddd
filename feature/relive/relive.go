package relive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// titlePrefix marks a relive page whose recording is ready. Pages without it
// are still being cut and carry no usable talk title yet.
const titlePrefix = "Relive:"

var idPattern = regexp.MustCompile(`/relive/(\d+)`)

// pageSuffixes separate the talk title from the site name in the <title>
// element. The site has used different dashes over the years.
var pageSuffixes = []string{" — ", " – ", " - "}

// Source discovers preliminary recordings on the streaming site.
type Source struct {
	client  *http.Client
	listURL string
	cdnBase string
	log     *zap.Logger
}

// NewSource creates a Source for an event's relive listing.
func NewSource(listURL, cdnBase string, timeoutSeconds int, log *zap.Logger) *Source {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &Source{
		client:  &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		listURL: listURL,
		cdnBase: cdnBase,
		log:     log,
	}
}

// List scrapes the listing page and returns the recording ids in page order,
// deduplicated.
func (s *Source) List(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build relive request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch relive listing %s: %w", s.listURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relive listing %s returned status %d", s.listURL, resp.StatusCode)
	}

	seen := make(map[string]bool)
	var ids []string

	z := html.NewTokenizer(resp.Body)
	for {
		switch z.Next() {
		case html.ErrorToken:
			// Tokenizer reports io.EOF as an error token at end of input.
			s.log.Debug("scraped relive listing",
				zap.String("url", s.listURL),
				zap.Int("ids", len(ids)))
			return ids, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key != "href" {
					continue
				}
				if m := idPattern.FindStringSubmatch(attr.Val); m != nil && !seen[m[1]] {
					seen[m[1]] = true
					ids = append(ids, m[1])
				}
			}
		}
	}
}

// Title fetches the recording page and extracts the talk title. The second
// return is false when the page carries no finished recording yet.
func (s *Source) Title(ctx context.Context, id string) (string, bool, error) {
	pageURL := s.PageURL(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to build relive page request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch relive page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("relive page %s returned status %d", pageURL, resp.StatusCode)
	}

	pageTitle, ok := extractTitle(resp.Body)
	if !ok {
		return "", false, nil
	}

	title, ok := parseTalkTitle(pageTitle)
	if !ok {
		s.log.Debug("relive page without finished recording", zap.String("id", id))
		return "", false, nil
	}
	return title, true, nil
}

// PageURL returns the HTML page of one recording.
func (s *Source) PageURL(id string) string {
	return s.listURL + "/" + id
}

// ContentURL returns the CDN location of one recording.
func (s *Source) ContentURL(id string) string {
	return s.cdnBase + "/" + id + "/muxed.mp4"
}

func extractTitle(body io.Reader) (string, bool) {
	z := html.NewTokenizer(body)
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken:
			tok := z.Token()
			inTitle = tok.Data == "title"
		case html.TextToken:
			if inTitle {
				return z.Token().Data, true
			}
		case html.EndTagToken:
			inTitle = false
		}
	}
}

// parseTalkTitle turns "Relive: Opening Event — streaming.media.ccc.de" into
// "Opening Event".
func parseTalkTitle(pageTitle string) (string, bool) {
	trimmed := strings.TrimSpace(pageTitle)
	if !strings.HasPrefix(trimmed, titlePrefix) {
		return "", false
	}
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, titlePrefix))

	for _, sep := range pageSuffixes {
		if idx := strings.Index(trimmed, sep); idx >= 0 {
			trimmed = trimmed[:idx]
			break
		}
	}

	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}
