// Package engine implements the sync core: the set-diff transfer
// algorithm that moves tracks between playlist endpoints, and the
// scheduler loop that runs due watchers on a fixed tick.
package engine
