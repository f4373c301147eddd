// Package mirror reconciles a local event tree against the two congress
// recording sources. Releases are canonical and live in releases/; relive
// cuts are preliminary, live in relive/, and are skipped or pruned once a
// matching release exists. The engine is stateless between cycles: every
// pass re-reads the directory tree and the remote listings, so interrupted
// or concurrent history never confuses it.
package mirror
