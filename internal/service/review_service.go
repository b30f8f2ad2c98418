package service

import (
	"context"

	"github.com/google/uuid"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/review"
	"github.com/tasklocal/marketplace/internal/domain/task"
)

// ReviewService handles post-completion feedback between task participants.
type ReviewService struct {
	reviewRepo review.Repository
	taskRepo   task.Repository
}

func NewReviewService(reviewRepo review.Repository, taskRepo task.Repository) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, taskRepo: taskRepo}
}

// CreateReviewRequest holds the input for leaving a review.
type CreateReviewRequest struct {
	TaskID   uuid.UUID
	AuthorID uuid.UUID
	Rating   int
	Comment  string
}

// CreateReview records feedback on a done task. The author must be the client
// or the contractor who completed it; the subject is the other party.
func (s *ReviewService) CreateReview(ctx context.Context, req CreateReviewRequest) (*review.Review, error) {
	t, err := s.taskRepo.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusDone {
		return nil, domainErrors.NewValidationError("task_id", "task is not done")
	}

	a, err := s.taskRepo.GetCompletedAssignment(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	var subjectID uuid.UUID
	switch req.AuthorID {
	case t.ClientID:
		subjectID = a.ContractorID
	case a.ContractorID:
		subjectID = t.ClientID
	default:
		return nil, domainErrors.ErrForbidden
	}

	r, err := review.NewReview(req.TaskID, req.AuthorID, subjectID, req.Rating, req.Comment)
	if err != nil {
		return nil, err
	}
	if err := s.reviewRepo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListReviews lists reviews about a user.
func (s *ReviewService) ListReviews(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]*review.Review, error) {
	return s.reviewRepo.ListBySubject(ctx, subjectID, limit, offset)
}
