// Package daemon hosts the long-running spool process: the HTTP API, the
// workflow manager, and the single-instance lock.
package daemon
