package storage

// schema is portable between SQLite and Postgres. Timestamps are stored as
// RFC 3339 text so both dialects round-trip them identically.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS assignments (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		title         TEXT NOT NULL,
		subject       TEXT NOT NULL DEFAULT '',
		grade_level   TEXT NOT NULL DEFAULT '',
		instructions  TEXT NOT NULL,
		feedback_tone TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending',
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS student_works (
		id            TEXT PRIMARY KEY,
		assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		position      INTEGER NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		content       TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_student_works_assignment ON student_works (assignment_id, position)`,
	`CREATE TABLE IF NOT EXISTS rubrics (
		id            TEXT PRIMARY KEY,
		assignment_id TEXT NOT NULL UNIQUE REFERENCES assignments(id) ON DELETE CASCADE,
		created_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rubric_criteria (
		rubric_id   TEXT NOT NULL REFERENCES rubrics(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL,
		PRIMARY KEY (rubric_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS rubric_levels (
		rubric_id          TEXT NOT NULL REFERENCES rubrics(id) ON DELETE CASCADE,
		criterion_position INTEGER NOT NULL,
		position           INTEGER NOT NULL,
		title              TEXT NOT NULL,
		description        TEXT NOT NULL,
		points             INTEGER NOT NULL,
		PRIMARY KEY (rubric_id, criterion_position, position)
	)`,
	`CREATE TABLE IF NOT EXISTS student_feedbacks (
		id                   TEXT PRIMARY KEY,
		student_work_id      TEXT NOT NULL UNIQUE REFERENCES student_works(id) ON DELETE CASCADE,
		qualitative_feedback TEXT NOT NULL,
		created_at           TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS criterion_levels (
		student_feedback_id TEXT NOT NULL REFERENCES student_feedbacks(id) ON DELETE CASCADE,
		position            INTEGER NOT NULL,
		criterion_title     TEXT NOT NULL,
		level_title         TEXT NOT NULL,
		explanation         TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (student_feedback_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS assignment_summaries (
		id                   TEXT PRIMARY KEY,
		assignment_id        TEXT NOT NULL UNIQUE REFERENCES assignments(id) ON DELETE CASCADE,
		student_work_count   INTEGER NOT NULL,
		qualitative_insights TEXT NOT NULL,
		created_at           TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS feedback_items (
		owner_kind  TEXT NOT NULL,
		owner_id    TEXT NOT NULL,
		position    INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL,
		evidence    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (owner_kind, owner_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS llm_usage_records (
		id             TEXT PRIMARY KEY,
		trackable_kind TEXT NOT NULL,
		trackable_id   TEXT NOT NULL,
		user_id        TEXT NOT NULL,
		provider       TEXT NOT NULL,
		model          TEXT NOT NULL,
		request_type   TEXT NOT NULL,
		input_tokens   BIGINT NOT NULL,
		output_tokens  BIGINT NOT NULL,
		token_count    BIGINT NOT NULL,
		cost_micro_usd BIGINT NOT NULL,
		created_at     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_trackable ON llm_usage_records (trackable_kind, trackable_id)`,
	`CREATE TABLE IF NOT EXISTS processing_steps (
		assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		step          TEXT NOT NULL,
		status        TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		PRIMARY KEY (assignment_id, step)
	)`,
}
