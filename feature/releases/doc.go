// Package releases reads the published recording list of a congress event
// from its podcast feed. Releases are the canonical, edited recordings; they
// supersede the preliminary relive cuts of the same talks.
package releases
