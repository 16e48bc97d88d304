// Package store defines the persistence contracts for actors, requests, proposals and
// projects. Drivers live in the memory, mongo and postgres subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a compare-and-set status update finds a different status.
	ErrConflict = errors.New("store: status conflict")
	// ErrDuplicate is returned when an insert violates a uniqueness index
	// (actor email within a role, project proposalId).
	ErrDuplicate = errors.New("store: duplicate key")
)

// ActorRepository persists buyers, agents and sellers, one collection per role.
type ActorRepository interface {
	CreateActor(ctx context.Context, a *models.Actor) error
	GetActor(ctx context.Context, role models.Role, id string) (*models.Actor, error)
	GetActorByEmail(ctx context.Context, role models.Role, email string) (*models.Actor, error)
}

// RequestRepository persists sourcing requests. List methods return newest first.
type RequestRepository interface {
	CreateRequest(ctx context.Context, r *models.Request) error
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	ListRequestsByBuyer(ctx context.Context, buyerID string) ([]*models.Request, error)
	ListRequests(ctx context.Context) ([]*models.Request, error)
	// UpdateRequestStatus sets the status to `to` only if it is currently one of `from`.
	UpdateRequestStatus(ctx context.Context, id string, from []models.RequestStatus, to models.RequestStatus, now time.Time) error
}

// ProposalRepository persists proposals. List methods return newest first.
type ProposalRepository interface {
	CreateProposal(ctx context.Context, p *models.Proposal) error
	GetProposal(ctx context.Context, id string) (*models.Proposal, error)
	ListProposalsByBuyer(ctx context.Context, buyerID string) ([]*models.Proposal, error)
	ListProposalsByAgent(ctx context.Context, agentID string) ([]*models.Proposal, error)
	ListProposalsByStatus(ctx context.Context, status models.ProposalStatus) ([]*models.Proposal, error)
	// UpdateProposalStatus sets the status to `to` only if it is currently `from`.
	UpdateProposalStatus(ctx context.Context, id string, from, to models.ProposalStatus, now time.Time) error
}

// ProjectRepository persists projects. ProposalID is unique.
type ProjectRepository interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProjectByProposal(ctx context.Context, proposalID string) (*models.Project, error)
	ListProjectsByBuyer(ctx context.Context, buyerID string) ([]*models.Project, error)
	ListProjectsByAgent(ctx context.Context, agentID string) ([]*models.Project, error)
}

// Store is the full document store.
type Store interface {
	ActorRepository
	RequestRepository
	ProposalRepository
	ProjectRepository

	// RunInTx runs fn so that either all of its writes apply or none do. The Store passed
	// to fn must be used for every operation that belongs to the transaction. Drivers that
	// cannot provide atomicity document what they do instead.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	Close(ctx context.Context) error
}

// Atomic is implemented by stores that can say whether RunInTx discards the writes of a
// failed fn.
type Atomic interface {
	Atomic() bool
}

// RollsBack reports whether s discards the writes of a failed RunInTx. Stores that do
// not implement Atomic are assumed not to.
func RollsBack(s Store) bool {
	a, ok := s.(Atomic)
	return ok && a.Atomic()
}

// ContainsStatus reports whether s is one of set.
func ContainsStatus[T comparable](set []T, s T) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
