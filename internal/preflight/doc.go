// Package preflight provides readiness checks for the paths and the
// classification backend that iconsort depends on.
//
// These checks run in two contexts:
//   - "iconsort check" prints every result.
//   - "iconsort run" and "iconsort watch" call RunAll before the first batch
//     and refuse to start when a check fails.
//
// Backend checks use a single attempt with a short timeout.
package preflight
