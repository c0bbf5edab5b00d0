// Package workflow drives queued download jobs through the fetch and merge
// stages, with heartbeat-based recovery for jobs orphaned by a crash and a
// retention sweep for published files.
package workflow
