// Package controlplane defines the collaborator contracts the orchestrator
// consumes (infrastructure, workload, and storage control planes) and the
// REST clients that implement them against the cluster's management
// endpoints. The orchestrator never implements these surfaces itself.
package controlplane
