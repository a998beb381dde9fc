/*
Package orchestrator sequences disruptive maintenance transitions against
cluster nodes while continuously verifying cluster health.

# Architecture

One node's drain and restore sequences are strictly ordered; no step runs
before its predecessor is confirmed:

	┌──────────────── drain / enter maintenance ────────────────┐
	│                                                            │
	│  stop controller VM ─▶ confirm stopped (grace window)      │
	│         │                                                  │
	│         ▼                                                  │
	│  poll cluster health until healthy (dual budget)           │
	│         │                                                  │
	│         ▼                                                  │
	│  enter maintenance + evacuate ─▶ confirm maintenance       │
	└────────────────────────────────────────────────────────────┘

	┌──────────────── exit maintenance / restore ───────────────┐
	│                                                            │
	│  exit maintenance ─▶ confirm connected                     │
	│         │                                                  │
	│         ▼                                                  │
	│  start controller VM                                       │
	│         │                                                  │
	│         ▼                                                  │
	│  poll cluster health until healthy past the settle delay   │
	└────────────────────────────────────────────────────────────┘

Multiple nodes may be orchestrated concurrently; a lock registry keyed on
node identity rejects a second operation on a node that already has one in
flight. Nothing is rolled back automatically: a failed sequence leaves the
node in the phase the last confirmed step produced, and the outcome reports
the phases reached so the operator can reconcile.
*/
package orchestrator
