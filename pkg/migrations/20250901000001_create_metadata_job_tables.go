package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE metadata_jobs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				status TEXT NOT NULL,
				total_books INTEGER NOT NULL DEFAULT 0,
				processed_books INTEGER NOT NULL DEFAULT 0,
				succeeded_books INTEGER NOT NULL DEFAULT 0,
				failed_books INTEGER NOT NULL DEFAULT 0,
				current_book_id INTEGER,
				last_error TEXT,
				started_at TIMESTAMPTZ,
				finished_at TIMESTAMPTZ,
				cancelled_at TIMESTAMPTZ
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		// The single-flight guard queries for any queued/running job.
		_, err = db.Exec(`CREATE INDEX ix_metadata_jobs_status ON metadata_jobs(status)`)
		if err != nil {
			return errors.WithStack(err)
		}

		// Event ids are the stream cursor; AUTOINCREMENT keeps them strictly
		// increasing even across deletes.
		_, err = db.Exec(`
			CREATE TABLE metadata_job_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				job_id INTEGER NOT NULL REFERENCES metadata_jobs(id) ON DELETE CASCADE,
				event_type TEXT NOT NULL,
				payload TEXT NOT NULL DEFAULT '{}'
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`CREATE INDEX ix_metadata_job_events_job_id ON metadata_job_events(job_id, id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DROP TABLE IF EXISTS metadata_job_events`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`DROP TABLE IF EXISTS metadata_jobs`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
