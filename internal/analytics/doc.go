// Package analytics implements the derivation stage of the pipeline: the
// named statistical transformations applied to an aggregated series or
// pivot. Every function here is a pure, stateless function of its inputs;
// randomized methods take an explicit seed so identical inputs always
// produce identical outputs.
//
// "Not enough history" is a first-class result state on each output type,
// never an error: a dashboard with two months of data is an expected
// situation, not a failure.
package analytics
