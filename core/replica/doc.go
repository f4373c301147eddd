// Package replica optionally mirrors finished downloads into S3-compatible
// object storage. The local directory tree stays the source of truth; the
// replica only follows it, receiving uploads after successful transfers and
// deletions when cleanup prunes a superseded recording.
package replica
