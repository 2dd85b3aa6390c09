// Package formula derives values for composite indicators.
//
// A composite indicator's formula embeds other indicators by name, e.g.
// "{Population} / {Area}". DeriveValues turns the formula into one bulk
// INSERT ... SELECT against the value store: for every (region, year) where
// all referenced indicators have a row, each {Name} is replaced by a lookup of
// that indicator's value for the same region and year, and the result is
// stored under the composite indicator.
//
// The arithmetic itself is evaluated by the value store. This package only
// locates references, resolves them, and builds the query tree.
package formula
