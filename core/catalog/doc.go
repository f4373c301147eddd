// Package catalog records mirror history in a local sqlite database: one
// row per reconciliation cycle plus the per-item outcomes, so `c3dl stats`
// can show what previous sessions did. The catalog is bookkeeping only;
// reconciliation decisions are always made against the directory tree, never
// against recorded history.
package catalog
