package config

import (
	"fmt"
	"sort"
	"strings"
)

// Preset describes one downloadable format of the release feeds.
type Preset struct {
	// FeedName is the podcast feed basename on the media site.
	FeedName string
	// Extension is the file extension of recordings in this format.
	Extension string
	// Description is the human readable format name.
	Description string
}

var presets = map[string]Preset{
	"hd":      {FeedName: "mp4-hq", Extension: ".mp4", Description: "1080p MP4"},
	"sd":      {FeedName: "mp4", Extension: ".mp4", Description: "576p MP4"},
	"webm":    {FeedName: "webm-hq", Extension: ".webm", Description: "1080p WebM"},
	"webm-sd": {FeedName: "webm", Extension: ".webm", Description: "576p WebM"},
	"mp3":     {FeedName: "mp3", Extension: ".mp3", Description: "MP3 audio"},
	"opus":    {FeedName: "opus", Extension: ".opus", Description: "Opus audio"},
}

// PresetFor looks up the preset for a quality name.
func PresetFor(quality string) (Preset, error) {
	p, ok := presets[quality]
	if !ok {
		return Preset{}, fmt.Errorf("unknown quality %q (choose one of %s)", quality, strings.Join(QualityNames(), ", "))
	}
	return p, nil
}

// QualityNames returns the known quality names in stable order.
func QualityNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
