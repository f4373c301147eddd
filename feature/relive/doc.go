// Package relive discovers preliminary talk recordings on the congress
// streaming site. Relive cuts appear minutes after a talk ends and are
// replaced by proper releases later, so everything here is treated as
// ephemeral by the mirror engine.
package relive
