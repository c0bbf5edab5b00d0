// Package logging wires log/slog behind the configuration surface.
//
// Two handlers are provided: a console handler that renders one record per
// line as timestamp, level, component, message, and key=value pairs, and a
// JSON handler for machine ingestion. The "auto" format picks console when
// stdout is a terminal and JSON otherwise, which keeps container logs
// structured without extra configuration.
//
// Field name constants keep job, stage, and request identifiers consistent
// across components; WithContext pulls the same identifiers out of a request
// or stage context.
package logging
