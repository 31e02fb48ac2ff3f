package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/digital-card-api/internal/database"
	"github.com/digital-card-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// importJobRepo is the concrete implementation of ImportJobRepository
type importJobRepo struct {
	db *database.DB
}

// NewImportJobRepo creates a new import job repository
func NewImportJobRepo(db *database.DB) ImportJobRepository {
	return &importJobRepo{db: db}
}

const jobColumns = `id, user_id, file_name, status, idempotency_key, total_rows, success_rows,
	failed_rows, created_cards, message, duration_ms, rows_per_sec, created_at, completed_at`

// Create inserts the job and copies its row errors in the same transaction
func (r *importJobRepo) Create(ctx context.Context, job *models.ImportJob, rowErrors []models.RowError) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO import_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.ExecContext(ctx, query,
		job.ID, job.UserID, job.FileName, job.Status, nullString(job.IdempotencyKey),
		job.TotalRows, job.SuccessRows, job.FailedRows, pq.Array(job.CreatedCards),
		job.Message, job.DurationMs, job.RowsPerSec, job.CreatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert import job: %w", err)
	}

	if len(rowErrors) > 0 {
		if err := copyRowErrors(ctx, tx, job.ID, rowErrors); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// copyRowErrors uses the COPY protocol; large imports can reject thousands of rows
func copyRowErrors(ctx context.Context, tx *sql.Tx, jobID string, rowErrors []models.RowError) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("import_errors",
		"job_id", "row_number", "messages", "data",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range rowErrors {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", e.Row, err)
		}
		if _, err := stmt.ExecContext(ctx, jobID, e.Row, pq.Array(e.Errors), string(data)); err != nil {
			return fmt.Errorf("failed to stage row %d: %w", e.Row, err)
		}
	}

	// Flush the COPY buffer
	_, err = stmt.ExecContext(ctx)
	return err
}

// GetByID retrieves a job by ID. Malformed IDs are reported as not found.
func (r *importJobRepo) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+jobColumns+` FROM import_jobs WHERE id = $1`, id)
}

// GetByIdempotencyKey retrieves the job a user created with the given key
func (r *importJobRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.ImportJob, error) {
	return r.getOne(ctx,
		`SELECT `+jobColumns+` FROM import_jobs WHERE user_id = $1 AND idempotency_key = $2`,
		userID, key,
	)
}

func (r *importJobRepo) getOne(ctx context.Context, query string, args ...interface{}) (*models.ImportJob, error) {
	var job models.ImportJob
	var idempotencyKey sql.NullString
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&job.ID, &job.UserID, &job.FileName, &job.Status, &idempotencyKey,
		&job.TotalRows, &job.SuccessRows, &job.FailedRows, pq.Array(&job.CreatedCards),
		&job.Message, &job.DurationMs, &job.RowsPerSec, &job.CreatedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job.IdempotencyKey = idempotencyKey.String
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}

// GetErrors retrieves rejected rows for a job in row order
func (r *importJobRepo) GetErrors(ctx context.Context, jobID string, limit int) ([]models.RowError, error) {
	query := `SELECT row_number, messages, data FROM import_errors WHERE job_id = $1 ORDER BY row_number`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", jobID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, jobID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.RowError{}
	for rows.Next() {
		var e models.RowError
		var data []byte
		if err := rows.Scan(&e.Row, pq.Array(&e.Errors), &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &e.Data); err != nil {
			return nil, fmt.Errorf("failed to decode row %d: %w", e.Row, err)
		}
		result = append(result, e)
	}

	return result, rows.Err()
}

// Count returns the total number of import jobs
func (r *importJobRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM import_jobs").Scan(&count)
	return count, err
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueViolation reports a PostgreSQL unique_violation (23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
