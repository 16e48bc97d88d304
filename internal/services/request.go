package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kartikbazzad/bunbase/marketplace/internal/aggregate"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
	"github.com/kartikbazzad/bunbase/marketplace/internal/validate"
	apperrors "github.com/kartikbazzad/bunbase/marketplace/pkg/errors"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

// RequestService handles sourcing request operations
type RequestService struct {
	store     store.Store
	enricher  *aggregate.Enricher
	validator *validate.Validator
	now       func() time.Time
}

// NewRequestService creates a new RequestService
func NewRequestService(s store.Store, enricher *aggregate.Enricher, validator *validate.Validator) *RequestService {
	return &RequestService{store: s, enricher: enricher, validator: validator, now: time.Now}
}

// CreateRequest records a new pending request owned by buyerID.
func (s *RequestService) CreateRequest(ctx context.Context, buyerID string, in models.CreateRequestInput) (*models.Request, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	in.Description = strings.TrimSpace(in.Description)
	in.Deadline = strings.TrimSpace(in.Deadline)

	if err := s.validator.Validate(validate.CreateRequest, in); err != nil {
		return nil, err
	}
	category, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, apperrors.Validation("category must be one of goods, textiles, agro")
	}
	deadline, err := ParseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	req := &models.Request{
		ID:          uuid.New().String(),
		BuyerID:     buyerID,
		Title:       in.Title,
		Category:    category,
		Description: in.Description,
		Budget:      *in.Budget,
		Deadline:    deadline,
		Status:      models.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, apperrors.Internal(err)
	}

	logger.FromContext(ctx).Info("Request created", "request_id", req.ID, "buyer_id", buyerID)
	return req, nil
}

// ListRequestsForOwner returns the buyer's own requests, newest first.
func (s *RequestService) ListRequestsForOwner(ctx context.Context, buyerID string) ([]*models.Request, error) {
	reqs, err := s.store.ListRequestsByBuyer(ctx, buyerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return reqs, nil
}

// ListAllOpenRequests returns every request, newest first, with buyer display fields.
// Status is not filtered: agents see completed requests too.
func (s *RequestService) ListAllOpenRequests(ctx context.Context) ([]*models.RequestView, error) {
	reqs, err := s.store.ListRequests(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	views, err := s.enricher.Requests(ctx, reqs)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return views, nil
}

// GetRequestDetail returns one request with the buyer's contact fields.
func (s *RequestService) GetRequestDetail(ctx context.Context, id string) (*models.RequestDetail, error) {
	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Request not found")
		}
		return nil, apperrors.Internal(err)
	}
	detail, err := s.enricher.RequestDetail(ctx, req)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return detail, nil
}

// ParseDeadline accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseDeadline(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperrors.Validation("deadline must be a date (YYYY-MM-DD)")
}
