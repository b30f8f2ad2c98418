package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/payment"
)

// Status represents the task status in the state machine.
type Status string

const (
	StatusOpen      Status = "open"
	StatusAssigned  Status = "assigned"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Task is a unit of work a client posts on the marketplace.
type Task struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	Title       string
	Description string
	Category    string
	Status      Status
	Budget      payment.Amount
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTask creates an open task owned by the given client.
func NewTask(clientID uuid.UUID, title, description, category string, budget payment.Amount) (*Task, error) {
	if title == "" {
		return nil, errors.NewValidationError("title", "cannot be empty")
	}
	if category == "" {
		return nil, errors.NewValidationError("category", "cannot be empty")
	}
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Task{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       title,
		Description: description,
		Category:    category,
		Status:      StatusOpen,
		Budget:      budget,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanTransitionTo checks if the task can transition to the given status.
func (t *Task) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusOpen:      {StatusAssigned, StatusCancelled},
		StatusAssigned:  {StatusDone, StatusOpen, StatusCancelled},
		StatusDone:      {},
		StatusCancelled: {},
	}
	for _, allowed := range transitions[t.Status] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the task to a new status.
func (t *Task) TransitionTo(newStatus Status) error {
	if !t.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition task from "+string(t.Status)+" to "+string(newStatus),
			errors.ErrTaskNotOpen,
		)
	}
	t.Status = newStatus
	t.UpdatedAt = time.Now()
	return nil
}

// AssignmentStatus represents the assignment status.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// Assignment binds a contractor to a task. A task has at most one active
// assignment.
type Assignment struct {
	ID           uuid.UUID
	TaskID       uuid.UUID
	ContractorID uuid.UUID
	Status       AssignmentStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAssignment creates an active assignment.
func NewAssignment(taskID, contractorID uuid.UUID) *Assignment {
	now := time.Now()
	return &Assignment{
		ID:           uuid.New(),
		TaskID:       taskID,
		ContractorID: contractorID,
		Status:       AssignmentActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Complete marks the assignment completed.
func (a *Assignment) Complete() error {
	if a.Status != AssignmentActive {
		return errors.NewDomainError("invalid_transition", "assignment is not active", nil)
	}
	a.Status = AssignmentCompleted
	a.UpdatedAt = time.Now()
	return nil
}

// Cancel marks the assignment cancelled.
func (a *Assignment) Cancel() error {
	if a.Status != AssignmentActive {
		return errors.NewDomainError("invalid_transition", "assignment is not active", nil)
	}
	a.Status = AssignmentCancelled
	a.UpdatedAt = time.Now()
	return nil
}
