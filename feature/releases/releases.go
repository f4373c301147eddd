package releases

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Item is one published recording from the release feed.
type Item struct {
	// Title is the talk title as published.
	Title string
	// URL is the direct download URL of the recording.
	URL string
	// Length is the advertised file size in bytes, 0 if the feed omits it.
	Length int64
}

// Source lists published recordings from a podcast feed.
type Source struct {
	client  *http.Client
	feedURL string
	log     *zap.Logger
}

// NewSource creates a Source for the given feed URL.
func NewSource(feedURL string, timeoutSeconds int, log *zap.Logger) *Source {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &Source{
		client:  &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		feedURL: feedURL,
		log:     log,
	}
}

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title     string `xml:"title"`
	Enclosure struct {
		URL    string `xml:"url,attr"`
		Length string `xml:"length,attr"`
	} `xml:"enclosure"`
}

// List fetches and parses the feed. Feed order is preserved; entries without
// a download URL are dropped.
func (s *Source) List(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", s.feedURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status %d", s.feedURL, resp.StatusCode)
	}

	var doc rssDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", s.feedURL, err)
	}

	items := make([]Item, 0, len(doc.Channel.Items))
	for _, entry := range doc.Channel.Items {
		if entry.Enclosure.URL == "" {
			s.log.Debug("skipping feed entry without enclosure",
				zap.String("title", entry.Title))
			continue
		}
		// Some feeds carry a missing or bogus length attribute.
		length, _ := strconv.ParseInt(entry.Enclosure.Length, 10, 64)
		items = append(items, Item{
			Title:  strings.TrimSpace(entry.Title),
			URL:    entry.Enclosure.URL,
			Length: length,
		})
	}

	s.log.Debug("fetched release feed",
		zap.String("url", s.feedURL),
		zap.Int("items", len(items)))
	return items, nil
}
