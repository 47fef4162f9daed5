// Package classifier provides the trainable statistical URL classifier.
//
// # Purpose
//
// The rule scorer in package heuristic is fixed. This package learns from
// labeled URLs instead, using the same nine-feature vector, and produces a
// probability that a URL is malicious. The scan pipeline uses that
// probability to adjust the rule score.
//
// # Variants
//
// Two estimators are available, chosen when the Classifier is built:
//   - VariantRandomForest: bagged CART trees with random feature subsets
//   - VariantLogisticRegression: L2-regularized logistic regression on
//     standardized inputs
//
// # Lifecycle
//
// A Classifier starts untrained. Train or Load produce a fitted estimator
// and publish it with a single atomic pointer swap, so Predict never sees a
// half-built model and needs no lock. Train and Load are serialized with
// each other.
//
// # Reproducibility
//
// Every random choice (split, bootstrap, feature sampling) comes from a
// generator seeded with the configured seed (42 by default). Two Train
// calls on the same data produce the same model and the same accuracy.
//
// # Persistence
//
// Save writes a JSON envelope carrying a format name, a version, the variant
// and the feature names next to the estimator parameters. Load refuses a
// snapshot whose feature layout differs from the running build.
package classifier
