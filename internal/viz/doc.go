// Package viz renders recorded runs in the terminal.
//
//   - [Chart]: asciigraph line charts resampled onto a linear or log year axis
//   - [Canvas]: Braille pixel canvas used by the replay view
//   - [ReplayModel]: Bubble Tea program that plays a run back snapshot by snapshot
//   - [Summary]: lipgloss panel of a run's summary metrics
//
// # Replay Key Bindings
//
//	Space   - Pause/Resume playback
//	Tab     - Next variable (Shift+Tab previous)
//	[ ]     - Step back/forward one snapshot
//	+ -     - Faster/slower playback
//	R       - Restart from the baseline
//	T       - Cycle color themes
//	?       - Show help overlay
package viz
