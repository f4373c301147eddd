// Package transfer downloads one remote object to a local path with partial
// resume, retry with exponential backoff, and size verification.
//
// # Transfer state
//
// The on-disk ".part" file is the sole persisted state of an incomplete
// transfer: its byte length is the resume offset. There is no side metadata
// file. Finalization is an atomic rename of the ".part" file onto the final
// path, so at any point in time either the partial or the final name exists,
// never both. A transfer interrupted mid-stream leaves a valid resumable
// ".part" file behind, not a corruption.
//
// # Retry policy
//
// Every failed attempt (network error, unexpected status, size mismatch)
// preserves the ".part" file and waits 5s, 10s, 20s, ... before re-probing
// it, so a retry continues from whatever made it to disk. After the retry
// budget is exhausted the partial file is intentionally left in place for a
// future invocation.
//
// The engine exclusively owns the ".part"-to-final transition for the path
// it is given; callers must not invoke it for a path that already holds a
// valid final file.
package transfer
