// Package events implements an in-process publish/subscribe broker for
// orchestration events. The CLI subscribes to render progress lines while
// a transition runs.
package events
