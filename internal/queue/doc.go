// Package queue persists download jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, embedded migrations, stats queries,
// heartbeat tracking, stuck-job recovery, and the status transitions the
// workflow manager relies on. Jobs carry the client's request (URL, kind,
// selected formats and languages) plus progress and result fields so the HTTP
// progress endpoint needs no additional state.
//
// The database is transient storage for in-flight and recently finished jobs
// rather than a long-term archive; the retention sweep prunes completed rows
// together with their files.
package queue
