package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/review"
)

// ReviewRepository implements review.Repository using PostgreSQL.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func (r *ReviewRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Create inserts a review. The unique index on (task_id, author_id) enforces
// one review per task per author.
func (r *ReviewRepository) Create(ctx context.Context, rev *review.Review) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO reviews (id, task_id, author_id, subject_id, rating, comment, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rev.ID, rev.TaskID, rev.AuthorID, rev.SubjectID, rev.Rating, rev.Comment, rev.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// ListBySubject lists reviews about a user, newest first.
func (r *ReviewRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*review.Review, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, task_id, author_id, subject_id, rating, comment, created_at
		 FROM reviews WHERE subject_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		subjectID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*review.Review
	for rows.Next() {
		rev := &review.Review{}
		if err := rows.Scan(&rev.ID, &rev.TaskID, &rev.AuthorID, &rev.SubjectID, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}
