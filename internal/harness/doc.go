// Package harness runs conformance scenarios against a fresh in-memory store.
//
// A scenario is a YAML file that seeds indicators and values, runs
// derivations and bucketing through the engine, and states what the store
// must contain afterwards:
//
//	name: population_density
//	description: Density is population over area per region and year
//	dataset:
//	  indicators:
//	    - {name: Population, value_type: integer}
//	    - {name: Area, value_type: float}
//	    - {name: Density, value_type: float, formula: "{Population} / {Area}"}
//	  values:
//	    - {indicator: Population, region: 1, year: 2020, value: 1200}
//	    - {indicator: Area, region: 1, year: 2020, value: 4}
//	derive: [Density]
//	expect:
//	  rows:
//	    - {indicator: Density, region: 1, year: 2020, value: 300.0}
//	  buckets:
//	    Density: "300.0"
//
// A scenario may instead expect an error code, such as UNKNOWN_REFERENCE or
// CYCLE_DETECTED, in which case the operations must fail with that code.
//
// # Deterministic Testing
//
// Every scenario runs in its own :memory: database with sequential run ids
// (testutil.SequentialRunIDs), so the same scenario produces the same
// snapshot on every run. Snapshots are compared with goldie; regenerate them
// with:
//
//	go test ./internal/harness -update
package harness
