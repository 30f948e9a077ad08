// Package presets holds the built-in mixing preset catalog and its plan
// gating. The catalog is seeded in code; plans expose the basic set, the
// basic+pop set, or everything.
package presets
