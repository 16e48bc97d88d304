package services

import (
	"context"

	"github.com/kartikbazzad/bunbase/marketplace/internal/aggregate"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
	apperrors "github.com/kartikbazzad/bunbase/marketplace/pkg/errors"
)

// ProjectService lists projects. Projects are only ever created by ProposalService.AcceptProposal.
type ProjectService struct {
	store    store.ProjectRepository
	enricher *aggregate.Enricher
}

// NewProjectService creates a new ProjectService
func NewProjectService(s store.ProjectRepository, enricher *aggregate.Enricher) *ProjectService {
	return &ProjectService{store: s, enricher: enricher}
}

// ListProjectsForBuyer returns the buyer's projects, newest first, with the agent's
// contact fields and the accepted proposal's message.
func (s *ProjectService) ListProjectsForBuyer(ctx context.Context, buyerID string) ([]*models.BuyerProjectView, error) {
	projects, err := s.store.ListProjectsByBuyer(ctx, buyerID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	views, err := s.enricher.ProjectsForBuyer(ctx, projects)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return views, nil
}

// ListProjectsForAgent returns the agent's projects, newest first, with the buyer's
// contact fields and the accepted proposal's message.
func (s *ProjectService) ListProjectsForAgent(ctx context.Context, agentID string) ([]*models.AgentProjectView, error) {
	projects, err := s.store.ListProjectsByAgent(ctx, agentID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	views, err := s.enricher.ProjectsForAgent(ctx, projects)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return views, nil
}
