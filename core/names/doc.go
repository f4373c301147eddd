// Package names turns talk titles into filesystem-safe file names and
// canonical comparison keys.
//
// Sanitize produces the on-disk name: illegal filesystem characters are
// replaced and the result is truncated to a UTF-8 safe byte budget so it
// stays below common filesystem name limits.
//
// Normalize produces a derived key used only for fuzzy comparison between a
// relive title and a release file name. It is never persisted. Both
// functions are pure and total.
package names
