// Package migration copies one source group into the destination service.
//
// The Orchestrator resolves the destination community, then migrates members
// page by page, then posts page by page, fanning each post out to its
// reactions and comments. Entities created by a previous run are detected
// through provenance tags and skipped, which makes interrupted runs resumable.
package migration
