// internal/db/db.go
package db

import (
    "database/sql"
    "log"

    _ "github.com/lib/pq"
)

var DB *sql.DB

func Init(dsn string) {
    var err error
    DB, err = sql.Open("postgres", dsn)
    if err != nil {
        log.Fatalf("failed to connect to DB: %v", err)
    }

    if err = DB.Ping(); err != nil {
        log.Fatalf("failed to ping DB: %v", err)
    }

    log.Println("✅ Connected to database")
}

// Schema is executed by the seeder; idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS campaigns (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    trigger         TEXT NOT NULL,
    steps           JSONB NOT NULL DEFAULT '[]',
    stop_conditions TEXT[] NOT NULL DEFAULT '{}',
    is_custom       BOOLEAN NOT NULL DEFAULT TRUE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS enrollments (
    id               TEXT PRIMARY KEY,
    campaign_id      TEXT NOT NULL REFERENCES campaigns(id),
    candidate_id     TEXT NOT NULL,
    candidate_name   TEXT NOT NULL DEFAULT '',
    candidate_email  TEXT NOT NULL DEFAULT '',
    candidate_phone  TEXT NOT NULL DEFAULT '',
    variables        JSONB NOT NULL DEFAULT '{}',
    current_step     INT NOT NULL DEFAULT -1,
    status           TEXT NOT NULL DEFAULT 'active',
    responded        BOOLEAN NOT NULL DEFAULT FALSE,
    cancel_reason    TEXT NOT NULL DEFAULT '',
    retry_count      INT NOT NULL DEFAULT 0,
    last_error       TEXT NOT NULL DEFAULT '',
    enrolled_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    next_due_at      TIMESTAMPTZ,
    claimed_by       TEXT NOT NULL DEFAULT '',
    claim_expires_at TIMESTAMPTZ,
    version          INT NOT NULL DEFAULT 0,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_enrollments_active_pair
    ON enrollments (campaign_id, candidate_id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_enrollments_due
    ON enrollments (next_due_at) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_enrollments_candidate
    ON enrollments (candidate_id);

CREATE TABLE IF NOT EXISTS tasks (
    id            TEXT PRIMARY KEY,
    enrollment_id TEXT NOT NULL REFERENCES enrollments(id),
    campaign_id   TEXT NOT NULL,
    candidate_id  TEXT NOT NULL,
    description   TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
