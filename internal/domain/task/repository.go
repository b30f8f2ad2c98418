package task

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for task and assignment persistence.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	Update(ctx context.Context, t *Task) error
	List(ctx context.Context, filter ListFilter) ([]*Task, error)

	CreateAssignment(ctx context.Context, a *Assignment) error
	GetAssignment(ctx context.Context, id uuid.UUID) (*Assignment, error)
	GetActiveAssignment(ctx context.Context, taskID uuid.UUID) (*Assignment, error)
	GetCompletedAssignment(ctx context.Context, taskID uuid.UUID) (*Assignment, error)
	UpdateAssignment(ctx context.Context, a *Assignment) error
}

// ListFilter defines filters for listing tasks.
type ListFilter struct {
	ClientID  *uuid.UUID
	Status    *Status
	Category  *string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}
