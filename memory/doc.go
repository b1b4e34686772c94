// Package memory models conversation transcripts and the bounded replay
// window.
//
// Persistence model:
//   - A transcript is an ordered, append-only sequence of Turns (role +
//     text); the full transcript is what gets persisted.
//   - The Window bounds only what is replayed to the model: Snapshot returns
//     the most recent k exchanges and never truncates the underlying
//     transcript.
package memory
