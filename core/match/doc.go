// Package match finds release files that correspond to relive titles using
// fuzzy string similarity over normalized names.
//
// The similarity measure is a longest-common-subsequence ratio, which
// tolerates the small naming differences between the live-recording feed and
// the finalized release feed (tags, punctuation, separators). The matcher
// returns the first file above the threshold rather than the best one; with
// the default 0.85 threshold multiple plausible matches for one title are
// rare in practice.
package match
