// Package stores provides the run history journal for vibe-setup.
// It records each pipeline run and the step transitions within it in a
// SQLite database (WAL mode) whose schema is managed by embedded migrations.
// The history is informational only; the durable setup state lives in the
// JSON state file owned by package pipeline.
package stores
