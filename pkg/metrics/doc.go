// Package metrics defines the Prometheus collectors for poll attempts,
// lifecycle operation outcomes, and storage provisioning steps.
package metrics
