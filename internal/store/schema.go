package store

import "strings"

// schemaTemplate is shared by both dialects; {{ts}}, {{int}} and {{false}}
// expand to the backend's timestamp, integer and boolean literal spellings.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS clients (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	hourly_rate_cents {{int}} NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'USD',
	archived BOOLEAN NOT NULL DEFAULT {{false}},
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'todo',
	priority {{int}} NOT NULL DEFAULT 2,
	due_at {{ts}},
	is_running BOOLEAN NOT NULL DEFAULT {{false}},
	accumulated_seconds {{int}} NOT NULL DEFAULT 0 CHECK (accumulated_seconds >= 0),
	last_resume_at {{ts}},
	last_stop_at {{ts}},
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS active_timers (
	scope_id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	started_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS time_sessions (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	project_id TEXT NOT NULL,
	started_at {{ts}} NOT NULL,
	stopped_at {{ts}} NOT NULL,
	seconds {{int}} NOT NULL,
	source TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS proposals (
	id TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	currency TEXT NOT NULL DEFAULT 'USD',
	items TEXT NOT NULL DEFAULT '[]',
	notes TEXT NOT NULL DEFAULT '',
	valid_until {{ts}},
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	inputs_hash TEXT NOT NULL,
	outcome TEXT NOT NULL,
	task_id TEXT NOT NULL DEFAULT '',
	details TEXT NOT NULL DEFAULT '',
	timestamp {{ts}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_client_id ON projects(client_id);
CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_is_running ON tasks(is_running);
CREATE INDEX IF NOT EXISTS idx_active_timers_task_id ON active_timers(task_id);
CREATE INDEX IF NOT EXISTS idx_time_sessions_task_id ON time_sessions(task_id);
CREATE INDEX IF NOT EXISTS idx_time_sessions_stopped_at ON time_sessions(stopped_at);
CREATE INDEX IF NOT EXISTS idx_proposals_client_id ON proposals(client_id);
`

func schemaFor(d Dialect) string {
	r := strings.NewReplacer("{{ts}}", "DATETIME", "{{int}}", "INTEGER", "{{false}}", "0")
	if d == DialectPostgres {
		r = strings.NewReplacer("{{ts}}", "TIMESTAMPTZ", "{{int}}", "BIGINT", "{{false}}", "FALSE")
	}
	return r.Replace(schemaTemplate)
}
