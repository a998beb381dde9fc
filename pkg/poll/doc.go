// Package poll implements the bounded health-poll loop shared by every
// lifecycle phase: wait for an external condition under a dual attempt-count
// and wall-clock budget, whichever is exhausted first.
package poll
