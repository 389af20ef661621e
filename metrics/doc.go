// Package metrics exposes Prometheus collectors for the game server: games
// dealt and completed, flips by result, saved scores, session evictions, and
// per-route HTTP request counts and latency.
package metrics
