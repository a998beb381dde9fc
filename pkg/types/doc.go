// Package types defines the core domain types shared across Strata packages.
package types
