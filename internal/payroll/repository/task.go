package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/paycore/paycore-backend/pkg/database"
)

// TaskRepository writes the status of tasks linked to edit requests
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// SetStatus records the status of a task
func (r *TaskRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		INSERT INTO tasks (id, status) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
	`

	_, err := r.db.Q(ctx).ExecContext(ctx, query, id, status)
	return err
}
