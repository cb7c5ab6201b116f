// Package gmid implements gm/Id transistor sizing on top of precomputed
// device characterization data.
//
// # Reading Guide
//
// Start with these files:
//   - provider.go: the Dataset interface every lookup goes through
//   - search.go: coarse-to-fine inversion of gm/Id, self-gain and Ft for VGS
//   - transform.go: re-expression of a VGS sweep against Vstar, gm/Id and log10(Id)
//   - sizer.go: operating points across lengths and linear width scaling
//   - corner.go: per-corner datasets, the active corner and parallel rebuilds
//
// # Architecture
//
// The gmid package defines the Dataset interface and the sizing logic; the
// analytic device model that implements Dataset lives in gmid/device/.
// All computations are stateless functions of a Dataset and a bias, except
// Manager, which owns the loaded corners and publishes immutable Snapshots.
//
// Searches report Underflow/Found/Overflow statuses rather than errors; errors
// are reserved for failed lookups, non-monotonic data and invalid arguments.
package gmid
