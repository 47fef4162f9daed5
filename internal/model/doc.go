// Package model defines the core data structures used throughout urlscan.
//
// This package contains the following main types:
//   - FeatureVector: The fixed 9-dimensional description of a URL
//   - Verdict: The safe / suspicious / malicious tier derived from a risk score
//   - ScanReport: The result of scanning a single URL
//   - BatchSummary: Aggregated counts over many scan reports
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The feature extractor, the rule scorer, the classifier and the
// report writers all need these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for API responses and
// database storage.
package model
