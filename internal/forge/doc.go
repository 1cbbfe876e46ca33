// Package forge drives the multi-model code generation loop.
//
// One iteration generates a file bundle from a prompt, has every configured
// reviewer rewrite it concurrently, merges the reviews with an aggregator
// model, and asks an analyst model what is still missing. RunIterative
// repeats that against an output directory until the aggregated bundle stops
// changing; RunOnce performs a single review pass over one source file.
//
// Runs are serialized per output target with an flock and recorded in the
// store so `atelier forge runs` can report them.
package forge
