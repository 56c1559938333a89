package repository

// Schema definitions for the Kestrel audit database.
// Compatible with both SQLite and PostgreSQL.

const schemaScoreEvents = `
CREATE TABLE IF NOT EXISTS score_events (
    id TEXT PRIMARY KEY,
    decision TEXT NOT NULL,
    risk INTEGER NOT NULL,
    reasons TEXT NOT NULL,
    model_version TEXT NOT NULL,
    model_updated_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_events_decision ON score_events(decision);
CREATE INDEX IF NOT EXISTS idx_score_events_model ON score_events(model_version);
CREATE INDEX IF NOT EXISTS idx_score_events_created ON score_events(created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaScoreEvents,
	}
}
