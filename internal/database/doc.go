// Package database provides SQLite-based storage for urlscan.
//
// This package implements the ScanDB, which stores:
//   - Scan reports for history, statistics and comparison
//   - Labeled sample URLs used to train the classifier
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
