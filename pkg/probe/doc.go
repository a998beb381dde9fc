// Package probe queries cluster health and classifies the raw status output
// into the ternary healthy/degraded/unreachable contract the poll loop
// consumes. Classification is isolated in a pure function so the marker
// list can be tested without any remote call.
package probe
