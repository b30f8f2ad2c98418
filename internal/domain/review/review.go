package review

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tasklocal/marketplace/internal/domain/errors"
)

// Review is feedback one task participant leaves about the other. Unique per
// (task, author).
type Review struct {
	ID        uuid.UUID
	TaskID    uuid.UUID
	AuthorID  uuid.UUID
	SubjectID uuid.UUID
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// NewReview creates a review.
func NewReview(taskID, authorID, subjectID uuid.UUID, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, errors.NewValidationError("rating", "must be between 1 and 5")
	}
	if authorID == subjectID {
		return nil, errors.NewValidationError("subject_id", "cannot review yourself")
	}
	return &Review{
		ID:        uuid.New(),
		TaskID:    taskID,
		AuthorID:  authorID,
		SubjectID: subjectID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}, nil
}

// Repository defines the interface for review persistence.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	ListBySubject(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*Review, error)
}
