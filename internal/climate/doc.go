// Package climate implements the coupled box model that follows a single
// catastrophic forcing event.
//
// The package exposes two state transitions over a [State] vector:
//
//   - [ApplyEvent]: the one-shot jump from baseline Earth to post-event state
//   - [Step]: advances every coupled subsystem by one time increment
//
// Both are plain functions of (state, constants, inputs). Constants come from
// [scenario.Constants]; the random source used by the aftershock process is
// owned by the caller, so a fixed seed and step sequence replays exactly.
//
// # Update order
//
// Step applies, in order: particulate fallout, the delayed re-entry pulse,
// optical depth, temperature relaxation toward the dust plus greenhouse
// target, ocean carbonate chemistry, silicate weathering, methane decay,
// magnetosphere recovery, biodiversity, the aftershock trial, and finally
// bounds enforcement. Later updates read values written earlier in the step.
//
// # Numeric guards
//
// Every logarithm, square root, exponential and division is fed a clamped
// argument. A non-finite field after a step is a defect and is reported as
// [ErrNonFinite] rather than propagated.
package climate
