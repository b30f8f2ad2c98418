package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/task"
)

// allowedTaskSortColumns is a whitelist of columns valid for ORDER BY.
var allowedTaskSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"budget":     "budget",
	"status":     "status",
}

// TaskRepository implements task.Repository using PostgreSQL.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	budgetStr := minorToNumericString(t.Budget.ValueMinor, t.Budget.Exponent())
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO tasks (id, client_id, title, description, category, status, budget, currency, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.ClientID, t.Title, t.Description, t.Category, string(t.Status), budgetStr, t.Budget.Currency, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return r.scanTask(r.db(ctx).QueryRow(ctx,
		`SELECT id, client_id, title, description, category, status, budget, currency, created_at, updated_at
		 FROM tasks WHERE id = $1`, id))
}

// Update updates an existing task.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	budgetStr := minorToNumericString(t.Budget.ValueMinor, t.Budget.Exponent())
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE tasks SET title=$1, description=$2, category=$3, status=$4, budget=$5, currency=$6, updated_at=$7
		 WHERE id=$8`,
		t.Title, t.Description, t.Category, string(t.Status), budgetStr, t.Budget.Currency, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrTaskNotFound
	}
	return nil
}

// List lists tasks with optional filters.
func (r *TaskRepository) List(ctx context.Context, f task.ListFilter) ([]*task.Task, error) {
	query := `SELECT id, client_id, title, description, category, status, budget, currency, created_at, updated_at
	 FROM tasks WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.ClientID != nil {
		query += fmt.Sprintf(" AND client_id = $%d", argIdx)
		args = append(args, *f.ClientID)
		argIdx++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.Category != nil {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, *f.Category)
		argIdx++
	}

	// Strict whitelist for sort column
	sortBy := "created_at"
	if col, ok := allowedTaskSortColumns[f.SortBy]; ok {
		sortBy = col
	}
	sortOrder := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		sortOrder = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateAssignment inserts an assignment. The partial unique index on
// (task_id) WHERE status = 'active' enforces one active assignment per task.
func (r *TaskRepository) CreateAssignment(ctx context.Context, a *task.Assignment) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO task_assignments (id, task_id, contractor_id, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.TaskID, a.ContractorID, string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrTaskAlreadyAssigned
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// GetAssignment retrieves an assignment by ID.
func (r *TaskRepository) GetAssignment(ctx context.Context, id uuid.UUID) (*task.Assignment, error) {
	return r.scanAssignment(r.db(ctx).QueryRow(ctx,
		`SELECT id, task_id, contractor_id, status, created_at, updated_at
		 FROM task_assignments WHERE id = $1`, id))
}

// GetActiveAssignment retrieves the active assignment for a task.
func (r *TaskRepository) GetActiveAssignment(ctx context.Context, taskID uuid.UUID) (*task.Assignment, error) {
	return r.scanAssignment(r.db(ctx).QueryRow(ctx,
		`SELECT id, task_id, contractor_id, status, created_at, updated_at
		 FROM task_assignments WHERE task_id = $1 AND status = 'active'`, taskID))
}

// GetCompletedAssignment retrieves the completed assignment for a task. The
// most recent one wins if a task was reopened and completed again.
func (r *TaskRepository) GetCompletedAssignment(ctx context.Context, taskID uuid.UUID) (*task.Assignment, error) {
	return r.scanAssignment(r.db(ctx).QueryRow(ctx,
		`SELECT id, task_id, contractor_id, status, created_at, updated_at
		 FROM task_assignments WHERE task_id = $1 AND status = 'completed'
		 ORDER BY updated_at DESC LIMIT 1`, taskID))
}

// UpdateAssignment updates an existing assignment.
func (r *TaskRepository) UpdateAssignment(ctx context.Context, a *task.Assignment) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE task_assignments SET status=$1, updated_at=$2 WHERE id=$3`,
		string(a.Status), a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAssignmentNotFound
	}
	return nil
}

// --- scanning helpers ---

func (r *TaskRepository) scanTask(s scanner) (*task.Task, error) {
	t := &task.Task{}
	var (
		status    string
		budgetStr string
	)
	err := s.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Category, &status, &budgetStr, &t.Budget.Currency, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	minor, err := numericStringToMinor(budgetStr, t.Budget.Exponent())
	if err != nil {
		return nil, fmt.Errorf("parse budget: %w", err)
	}
	t.Budget.ValueMinor = minor
	t.Status = task.Status(status)
	return t, nil
}

func (r *TaskRepository) scanAssignment(s scanner) (*task.Assignment, error) {
	a := &task.Assignment{}
	var status string
	err := s.Scan(&a.ID, &a.TaskID, &a.ContractorID, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	a.Status = task.AssignmentStatus(status)
	return a, nil
}
