// Package services holds cross-cutting helpers shared by the stage handlers:
// sentinel error markers with a wrapping convention, and context annotations
// that carry job, stage, and request identifiers into logs.
package services
