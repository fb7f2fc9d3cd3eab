// Package services implements the core application logic:
// the single-document pipeline, the chunk reconciler, the delta-sync
// state machine, ACL resolution, and the sync scheduler.
//
// Services depend only on domain types and driven ports; all I/O goes
// through injected adapters.
package services
