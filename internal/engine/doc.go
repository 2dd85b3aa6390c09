// Package engine orchestrates derivation and bucketing of indicators.
//
// An Engine ties the value store, the formula resolver and the bucketizer
// together. Each operation gets a run id so every log line it emits can be
// correlated:
//
//	level=INFO msg="derived indicator" run_id=0192... indicator="Population density" rows=412
//
// Operations are synchronous. DeriveAll derives composite indicators that
// depend on other composites after their dependencies, and refuses to run when
// formulas reference each other in a cycle.
package engine
