// Package queue evaluates steady-state M/M/1 and M/M/c (Erlang C) queues and
// samples a chosen metric over a range of arrival rates.
//
// All functions are pure and safe for concurrent use. Model failures
// (instability, invalid server count, degenerate rates) are returned as
// *ModelError values and never panic.
//
// The multi-server evaluator uses the direct Erlang-C formula. Its factorial
// and power terms overflow float64 once c exceeds roughly 170 (or r^c grows
// past 1e308); the resulting infinities propagate into p0 and the derived
// metrics unchanged.
package queue
