// Package queue persists mixing jobs, their artifacts, idempotency keys, and
// payment events in SQLite. Every status mutation is a single conditional
// UPDATE keyed on (id, status); zero rows affected surfaces as a conflict so
// concurrent daemons coordinate through the table alone.
package queue
