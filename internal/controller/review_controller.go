package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tasklocal/marketplace/internal/service"
)

type ReviewController struct {
	reviewService *service.ReviewService
	authzService  *service.AuthzService
}

func NewReviewController(reviewService *service.ReviewService, authzService *service.AuthzService) *ReviewController {
	return &ReviewController{reviewService: reviewService, authzService: authzService}
}

// Create leaves a review on a done task.
func (h *ReviewController) Create(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid task id", Code: "invalid_id"})
		return
	}

	var req CreateReviewRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	authorID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	rev, err := h.reviewService.CreateReview(r.Context(), service.CreateReviewRequest{
		TaskID:   taskID,
		AuthorID: authorID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromReview(rev))
}

// ListBySubject lists reviews about a user.
func (h *ReviewController) ListBySubject(w http.ResponseWriter, r *http.Request) {
	subjectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid user id", Code: "invalid_id"})
		return
	}

	limit, offset := paginationParams(r)
	reviews, err := h.reviewService.ListReviews(r.Context(), subjectID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*ReviewResponse, 0, len(reviews))
	for _, rev := range reviews {
		resp = append(resp, FromReview(rev))
	}
	writeJSON(w, http.StatusOK, resp)
}
