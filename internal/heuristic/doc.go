// Package heuristic scores a feature vector with a fixed table of rules.
//
// # Rule Table
//
// RuleTable holds one Rule per feature, in feature order. A Rule has a
// ladder of Tiers sorted from the most severe to the least severe. The first
// tier whose condition matches adds its delta and its reason; lower tiers of
// the same rule are skipped, so tiers never stack.
//
// The table is data. Each Rule can be evaluated on its own, and adding a
// signal means adding a row rather than another branch.
//
// # Score
//
// Score sums the deltas of all matching tiers and clamps the result to
// [0, 100]. Reasons keep table order so that output is reproducible. When
// no rule matches, the only reason is model.NoSuspiciousPatternsReason.
package heuristic
