// Package scan runs the URL scoring pipeline.
//
// A scan moves one model.ScanReport through a fixed sequence of steps:
//  1. FeatureStep extracts the feature vector and the registrable domain
//  2. HeuristicStep applies the rule table
//  3. ClassifierStep lets a trained classifier adjust the score
//  4. VerdictStep clamps the final score and maps it to a verdict
//
// Design decision: We keep the pipeline pattern even though every step is
// local and fast because:
// 1. Each step can be tested alone against a hand-built report
// 2. The classifier step can be left out or swapped without touching scoring
// 3. Logging of step execution is consistent for CLI and server scans
//
// # Classifier Capability
//
// The classifier is optional. It is handed to the pipeline as a Capability
// that is Unavailable (no classifier configured), Untrained (configured but
// no model yet) or Trained. Only a Trained capability changes scores.
// Classifier errors never fail a scan; they are logged and the heuristic
// result is kept.
//
// # Batches
//
// BatchProcessor scans many URLs concurrently with errgroup and a
// concurrency limit, keeping results in input order.
package scan
