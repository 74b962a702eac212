// Package dedupe provides a time-bounded seen-cache used to drop
// redelivered transport frames before they reach conversation state.
package dedupe
