package service

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/domain/task"
	"github.com/tasklocal/marketplace/internal/domain/user"
)

// TaskService handles task lifecycle and assignments.
type TaskService struct {
	taskRepo  task.Repository
	userRepo  user.Repository
	txManager TransactionManager
}

func NewTaskService(taskRepo task.Repository, userRepo user.Repository, txManager TransactionManager) *TaskService {
	return &TaskService{taskRepo: taskRepo, userRepo: userRepo, txManager: txManager}
}

// CreateTaskRequest holds the input for posting a task.
type CreateTaskRequest struct {
	ClientID    uuid.UUID
	Title       string
	Description string
	Category    string
	BudgetMinor int64
	Currency    string
}

// CreateTask posts an open task for a client.
func (s *TaskService) CreateTask(ctx context.Context, req CreateTaskRequest) (*task.Task, error) {
	client, err := s.userRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if client.Role != user.RoleClient && client.Role != user.RoleAdmin {
		return nil, domainErrors.ErrForbidden
	}

	t, err := task.NewTask(req.ClientID, req.Title, req.Description, req.Category,
		payment.Amount{ValueMinor: req.BudgetMinor, Currency: req.Currency})
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTask returns a task by id.
func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return s.taskRepo.GetByID(ctx, id)
}

// ListTasks lists tasks with filters.
func (s *TaskService) ListTasks(ctx context.Context, filter task.ListFilter) ([]*task.Task, error) {
	return s.taskRepo.List(ctx, filter)
}

// Claim assigns an open task to a contractor. The status transition and the
// assignment row commit together; the partial unique index on active
// assignments resolves concurrent claims to a single winner.
func (s *TaskService) Claim(ctx context.Context, taskID, contractorID uuid.UUID) (*task.Assignment, error) {
	contractor, err := s.userRepo.GetByID(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	if contractor.Role != user.RoleContractor {
		return nil, domainErrors.ErrForbidden
	}

	t, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.ClientID == contractorID {
		return nil, domainErrors.NewValidationError("task_id", "cannot claim your own task")
	}
	if t.Status != task.StatusOpen {
		return nil, domainErrors.ErrTaskNotOpen
	}

	a := task.NewAssignment(taskID, contractorID)
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := t.TransitionTo(task.StatusAssigned); err != nil {
			return err
		}
		if err := s.taskRepo.Update(txCtx, t); err != nil {
			return err
		}
		return s.taskRepo.CreateAssignment(txCtx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Complete marks an assigned task done. Only the task's client may complete
// it; the assignment completes in the same transaction.
func (s *TaskService) Complete(ctx context.Context, taskID, actorID uuid.UUID) error {
	t, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if t.ClientID != actorID {
		return domainErrors.ErrForbidden
	}

	a, err := s.taskRepo.GetActiveAssignment(ctx, taskID)
	if err != nil {
		return err
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := t.TransitionTo(task.StatusDone); err != nil {
			return err
		}
		if err := s.taskRepo.Update(txCtx, t); err != nil {
			return err
		}
		if err := a.Complete(); err != nil {
			return err
		}
		return s.taskRepo.UpdateAssignment(txCtx, a)
	})
}

// Cancel cancels a task. Only the task's client may cancel; an active
// assignment, if any, cancels with it.
func (s *TaskService) Cancel(ctx context.Context, taskID, actorID uuid.UUID) error {
	t, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if t.ClientID != actorID {
		return domainErrors.ErrForbidden
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := t.TransitionTo(task.StatusCancelled); err != nil {
			return err
		}
		if err := s.taskRepo.Update(txCtx, t); err != nil {
			return err
		}

		a, err := s.taskRepo.GetActiveAssignment(txCtx, taskID)
		if err != nil {
			if stderrors.Is(err, domainErrors.ErrAssignmentNotFound) {
				return nil
			}
			return err
		}
		if err := a.Cancel(); err != nil {
			return err
		}
		return s.taskRepo.UpdateAssignment(txCtx, a)
	})
}
