// Package analysis post-processes simulation results.
//
//   - [Bands]: per-snapshot ensemble statistics across seeds
//   - [Sweep]: a summary metric as a function of one event parameter
//   - [GridSearch]: the extreme of a metric over several parameter axes
//   - [PhasePortrait]: two snapshot keys plotted against each other
//   - [Crossings]: years at which a key crosses a threshold
//
// # Ensemble bands
//
// Runs of one configuration share a step schedule, so snapshots align by
// index across seeds:
//
//	results, _ := sim.NewEnsemble(factory, 16, 1).Run(ctx, cfg)
//	bands, _ := analysis.Bands(results, "subsurface_habitat_fraction")
package analysis
