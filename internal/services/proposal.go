package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kartikbazzad/bunbase/marketplace/internal/aggregate"
	"github.com/kartikbazzad/bunbase/marketplace/internal/metrics"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
	"github.com/kartikbazzad/bunbase/marketplace/internal/validate"
	apperrors "github.com/kartikbazzad/bunbase/marketplace/pkg/errors"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

// ProposalService handles proposals and the acceptance transaction.
type ProposalService struct {
	store     store.Store
	enricher  *aggregate.Enricher
	validator *validate.Validator
	now       func() time.Time
}

// NewProposalService creates a new ProposalService
func NewProposalService(s store.Store, enricher *aggregate.Enricher, validator *validate.Validator) *ProposalService {
	return &ProposalService{store: s, enricher: enricher, validator: validator, now: time.Now}
}

// CreateProposal records a pending proposal from agentID against an open request. The
// request's buyer is copied onto the proposal.
func (s *ProposalService) CreateProposal(ctx context.Context, agentID string, in models.CreateProposalInput) (*models.Proposal, error) {
	in.RequestID = strings.TrimSpace(in.RequestID)
	in.Message = strings.TrimSpace(in.Message)
	if err := s.validator.Validate(validate.CreateProposal, in); err != nil {
		return nil, err
	}

	req, err := s.store.GetRequest(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Request not found")
		}
		return nil, apperrors.Internal(err)
	}
	if !req.Status.IsOpen() {
		return nil, apperrors.Conflict("Request is no longer accepting proposals")
	}

	now := s.now().UTC()
	p := &models.Proposal{
		ID:        uuid.New().String(),
		RequestID: req.ID,
		BuyerID:   req.BuyerID,
		AgentID:   agentID,
		Message:   in.Message,
		Status:    models.ProposalPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateProposal(ctx, p); err != nil {
		return nil, apperrors.Internal(err)
	}

	logger.FromContext(ctx).Info("Proposal created", "proposal_id", p.ID, "request_id", req.ID, "agent_id", agentID)
	return p, nil
}

// ListProposalsForBuyer returns proposals addressed to the buyer, newest first, with the
// agent's name and company and the request's title, category and budget.
func (s *ProposalService) ListProposalsForBuyer(ctx context.Context, buyerID string) ([]*models.BuyerProposalView, error) {
	props, err := s.store.ListProposalsByBuyer(ctx, buyerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	views, err := s.enricher.ProposalsForBuyer(ctx, props)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return views, nil
}

// ListProposalsForAgent returns the agent's own proposals, newest first, with the buyer's
// name and company and the request's title, category and budget.
func (s *ProposalService) ListProposalsForAgent(ctx context.Context, agentID string) ([]*models.AgentProposalView, error) {
	props, err := s.store.ListProposalsByAgent(ctx, agentID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	views, err := s.enricher.ProposalsForAgent(ctx, props)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return views, nil
}

// loadForDecision fetches the proposal and checks the caller may move it to next.
func (s *ProposalService) loadForDecision(ctx context.Context, callerID, proposalID string, next models.ProposalStatus) (*models.Proposal, error) {
	p, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Proposal not found")
		}
		return nil, apperrors.Internal(err)
	}
	if p.BuyerID != callerID {
		return nil, apperrors.Forbidden("Not authorized to decide this proposal")
	}
	if !p.Status.CanTransitionTo(next) {
		return nil, apperrors.Conflict(fmt.Sprintf("Proposal is already %s", p.Status))
	}
	return p, nil
}

// AcceptProposal accepts a pending proposal on behalf of its buyer and materializes the
// project. The request is completed, the proposal accepted and the project inserted in one
// store transaction; a competing acceptance on the same request gets a conflict.
func (s *ProposalService) AcceptProposal(ctx context.Context, callerID, proposalID string) (accepted *models.Proposal, project *models.Project, err error) {
	defer func() {
		metrics.ProposalDecisions.WithLabelValues("accept", metrics.StatusLabel(err)).Inc()
	}()

	p, err := s.loadForDecision(ctx, callerID, proposalID, models.ProposalAccepted)
	if err != nil {
		return nil, nil, err
	}

	// Without rollback, a failed step undoes the earlier writes itself.
	compensate := !store.RollsBack(s.store)

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		req, err := tx.GetRequest(ctx, p.RequestID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperrors.NotFound("Request not found")
			}
			return apperrors.Internal(err)
		}
		if !req.Status.IsOpen() {
			return apperrors.Conflict("Request is no longer open")
		}

		now := s.now().UTC()
		if err := tx.UpdateRequestStatus(ctx, req.ID, models.OpenRequestStatuses, models.RequestCompleted, now); err != nil {
			return mapCASErr(err, "Request is no longer open")
		}
		if err := tx.UpdateProposalStatus(ctx, p.ID, models.ProposalPending, models.ProposalAccepted, now); err != nil {
			if compensate {
				revertRequest(ctx, tx, req)
			}
			return mapCASErr(err, "Proposal has already been decided")
		}

		project = models.NewProjectFromAcceptance(uuid.New().String(), req, p, now)
		if err := tx.CreateProject(ctx, project); err != nil {
			if compensate {
				revertProposal(ctx, tx, p)
				revertRequest(ctx, tx, req)
			}
			if errors.Is(err, store.ErrDuplicate) {
				return apperrors.Conflict("Proposal already has a project")
			}
			return apperrors.Internal(err)
		}

		p.Status, p.UpdatedAt = models.ProposalAccepted, now
		return nil
	})
	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.Internal(err)
		}
		return nil, nil, err
	}

	logger.FromContext(ctx).Info("Proposal accepted",
		"proposal_id", p.ID, "request_id", p.RequestID, "project_id", project.ID)
	return p, project, nil
}

// RejectProposal rejects a pending proposal. No project is created and the request is
// left as it is.
func (s *ProposalService) RejectProposal(ctx context.Context, callerID, proposalID string) (rejected *models.Proposal, err error) {
	defer func() {
		metrics.ProposalDecisions.WithLabelValues("reject", metrics.StatusLabel(err)).Inc()
	}()

	p, err := s.loadForDecision(ctx, callerID, proposalID, models.ProposalRejected)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.store.UpdateProposalStatus(ctx, p.ID, models.ProposalPending, models.ProposalRejected, now); err != nil {
		return nil, mapCASErr(err, "Proposal has already been decided")
	}
	p.Status, p.UpdatedAt = models.ProposalRejected, now

	logger.FromContext(ctx).Info("Proposal rejected", "proposal_id", p.ID, "request_id", p.RequestID)
	return p, nil
}

// Reconcile creates the missing project for every accepted proposal that has none and
// completes its request. It repairs acceptances interrupted on stores without
// transactions and returns how many were repaired.
func (s *ProposalService) Reconcile(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	accepted, err := s.store.ListProposalsByStatus(ctx, models.ProposalAccepted)
	if err != nil {
		return 0, apperrors.Internal(err)
	}

	repaired := 0
	for _, p := range accepted {
		if _, err := s.store.GetProjectByProposal(ctx, p.ID); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return repaired, apperrors.Internal(err)
		}

		req, err := s.store.GetRequest(ctx, p.RequestID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Warn("Accepted proposal references a missing request", "proposal_id", p.ID, "request_id", p.RequestID)
				continue
			}
			return repaired, apperrors.Internal(err)
		}

		project := models.NewProjectFromAcceptance(uuid.New().String(), req, p, s.now().UTC())
		if err := s.store.CreateProject(ctx, project); err != nil && !errors.Is(err, store.ErrDuplicate) {
			return repaired, apperrors.Internal(err)
		}
		err = s.store.UpdateRequestStatus(ctx, req.ID, models.OpenRequestStatuses, models.RequestCompleted, project.CreatedAt)
		if err != nil && !errors.Is(err, store.ErrConflict) {
			return repaired, apperrors.Internal(err)
		}

		log.Info("Reconciled accepted proposal", "proposal_id", p.ID, "project_id", project.ID)
		repaired++
	}
	return repaired, nil
}

// revertProposal puts an accepted proposal back to pending.
func revertProposal(ctx context.Context, tx store.Store, p *models.Proposal) {
	err := tx.UpdateProposalStatus(ctx, p.ID, models.ProposalAccepted, models.ProposalPending, p.UpdatedAt)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to revert proposal status", "proposal_id", p.ID, "error", err)
	}
}

// revertRequest puts the request back to its previous status.
func revertRequest(ctx context.Context, tx store.Store, req *models.Request) {
	err := tx.UpdateRequestStatus(ctx, req.ID, []models.RequestStatus{models.RequestCompleted}, req.Status, req.UpdatedAt)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to revert request status", "request_id", req.ID, "error", err)
	}
}

func mapCASErr(err error, conflictMsg string) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return apperrors.Conflict(conflictMsg)
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound("Not found")
	default:
		return apperrors.Internal(err)
	}
}
