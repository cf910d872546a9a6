// Package acceptance runs the Gherkin features under features/ against the
// real chunker, manual index, analysis pipeline and SQLite log store.
package acceptance
