package models

import (
	"time"
)

// ImportStatus represents the final state of an import run
type ImportStatus string

const (
	ImportStatusCompleted ImportStatus = "completed" // every row accepted
	ImportStatusPartial   ImportStatus = "partial"
	ImportStatusFailed    ImportStatus = "failed" // no row accepted
)

// ImportJob records one import request and its outcome
type ImportJob struct {
	ID             string       `json:"job_id" db:"id" bson:"_id"`
	UserID         string       `json:"user_id" db:"user_id" bson:"userId"`
	FileName       string       `json:"file_name" db:"file_name" bson:"fileName"`
	Status         ImportStatus `json:"status" db:"status" bson:"status"`
	IdempotencyKey string       `json:"idempotency_key,omitempty" db:"idempotency_key" bson:"idempotencyKey,omitempty"`
	TotalRows      int          `json:"total_rows" db:"total_rows" bson:"totalRows"`
	SuccessRows    int          `json:"success_rows" db:"success_rows" bson:"successRows"`
	FailedRows     int          `json:"failed_rows" db:"failed_rows" bson:"failedRows"`
	CreatedCards   []string     `json:"created_cards" db:"created_cards" bson:"createdCards"`
	Message        string       `json:"message" db:"message" bson:"message"`
	DurationMs     int64        `json:"duration_ms" db:"duration_ms" bson:"durationMs"`
	RowsPerSec     float64      `json:"rows_per_sec,omitempty" db:"rows_per_sec" bson:"rowsPerSec"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at" bson:"createdAt"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty" db:"completed_at" bson:"completedAt,omitempty"`
}

// JobResponse is the API response for an import job
type JobResponse struct {
	ImportJob
	Errors      []RowError `json:"errors,omitempty"`
	ErrorCount  int        `json:"error_count"`
	ErrorReport string     `json:"error_report_url,omitempty"`
}

// Result rebuilds the response originally returned for this job
func (j *ImportJob) Result(errorRows []RowError) *ImportResult {
	if errorRows == nil {
		errorRows = []RowError{}
	}
	created := j.CreatedCards
	if created == nil {
		created = []string{}
	}
	return &ImportResult{
		JobID:        j.ID,
		Success:      j.Status == ImportStatusCompleted,
		TotalRows:    j.TotalRows,
		SuccessRows:  j.SuccessRows,
		ErrorRows:    errorRows,
		CreatedCards: created,
		Message:      j.Message,
	}
}
