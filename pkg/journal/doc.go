// Package journal persists an append-only record of lifecycle operations
// and phase transitions in BoltDB for after-the-fact operator review.
package journal
