// Package memory is an in-process store driver. It backs tests and single-node development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
)

// Store keeps every collection in maps guarded by one RWMutex. Transactions are serialized
// by txMu and undone from an undo log on error.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	actors    map[models.Role]map[string]*models.Actor
	emails    map[models.Role]map[string]string
	requests  map[string]*models.Request
	proposals map[string]*models.Proposal
	projects  map[string]*models.Project
	// proposalID -> projectID
	projectByProposal map[string]string
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{
		actors:            make(map[models.Role]map[string]*models.Actor),
		emails:            make(map[models.Role]map[string]string),
		requests:          make(map[string]*models.Request),
		proposals:         make(map[string]*models.Proposal),
		projects:          make(map[string]*models.Project),
		projectByProposal: make(map[string]string),
	}
	for _, r := range models.Roles {
		s.actors[r] = make(map[string]*models.Actor)
		s.emails[r] = make(map[string]string)
	}
	return s
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ---- actors ----

func (s *Store) CreateActor(ctx context.Context, a *models.Actor) error {
	_, err := s.createActor(a)
	return err
}

func (s *Store) createActor(a *models.Actor) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.actors[a.Role]
	if !ok {
		return nil, store.ErrNotFound
	}
	key := emailKey(a.Email)
	if _, exists := s.emails[a.Role][key]; exists {
		return nil, store.ErrDuplicate
	}
	if _, exists := byID[a.ID]; exists {
		return nil, store.ErrDuplicate
	}
	cp := cloneActor(a)
	byID[a.ID] = cp
	s.emails[a.Role][key] = a.ID

	return func() {
		delete(byID, cp.ID)
		delete(s.emails[cp.Role], key)
	}, nil
}

func (s *Store) GetActor(ctx context.Context, role models.Role, id string) (*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[role][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneActor(a), nil
}

func (s *Store) GetActorByEmail(ctx context.Context, role models.Role, email string) (*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[role][emailKey(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneActor(s.actors[role][id]), nil
}

// ---- requests ----

func (s *Store) CreateRequest(ctx context.Context, r *models.Request) error {
	_, err := s.createRequest(r)
	return err
}

func (s *Store) createRequest(r *models.Request) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[r.ID]; exists {
		return nil, store.ErrDuplicate
	}
	cp := *r
	s.requests[r.ID] = &cp
	return func() { delete(s.requests, cp.ID) }, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRequestsByBuyer(ctx context.Context, buyerID string) ([]*models.Request, error) {
	return s.listRequests(func(r *models.Request) bool { return r.BuyerID == buyerID }), nil
}

func (s *Store) ListRequests(ctx context.Context) ([]*models.Request, error) {
	return s.listRequests(func(*models.Request) bool { return true }), nil
}

func (s *Store) listRequests(match func(*models.Request) bool) []*models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0)
	for _, r := range s.requests {
		if match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id string, from []models.RequestStatus, to models.RequestStatus, now time.Time) error {
	_, err := s.updateRequestStatus(id, from, to, now)
	return err
}

func (s *Store) updateRequestStatus(id string, from []models.RequestStatus, to models.RequestStatus, now time.Time) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !store.ContainsStatus(from, r.Status) {
		return nil, store.ErrConflict
	}
	prevStatus, prevUpdated := r.Status, r.UpdatedAt
	r.Status, r.UpdatedAt = to, now
	return func() { r.Status, r.UpdatedAt = prevStatus, prevUpdated }, nil
}

// ---- proposals ----

func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	_, err := s.createProposal(p)
	return err
}

func (s *Store) createProposal(p *models.Proposal) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.proposals[p.ID]; exists {
		return nil, store.ErrDuplicate
	}
	cp := *p
	s.proposals[p.ID] = &cp
	return func() { delete(s.proposals, cp.ID) }, nil
}

func (s *Store) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProposalsByBuyer(ctx context.Context, buyerID string) ([]*models.Proposal, error) {
	return s.listProposals(func(p *models.Proposal) bool { return p.BuyerID == buyerID }), nil
}

func (s *Store) ListProposalsByAgent(ctx context.Context, agentID string) ([]*models.Proposal, error) {
	return s.listProposals(func(p *models.Proposal) bool { return p.AgentID == agentID }), nil
}

func (s *Store) ListProposalsByStatus(ctx context.Context, status models.ProposalStatus) ([]*models.Proposal, error) {
	return s.listProposals(func(p *models.Proposal) bool { return p.Status == status }), nil
}

func (s *Store) listProposals(match func(*models.Proposal) bool) []*models.Proposal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Proposal, 0)
	for _, p := range s.proposals {
		if match(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out
}

func (s *Store) UpdateProposalStatus(ctx context.Context, id string, from, to models.ProposalStatus, now time.Time) error {
	_, err := s.updateProposalStatus(id, from, to, now)
	return err
}

func (s *Store) updateProposalStatus(id string, from, to models.ProposalStatus, now time.Time) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Status != from {
		return nil, store.ErrConflict
	}
	prevStatus, prevUpdated := p.Status, p.UpdatedAt
	p.Status, p.UpdatedAt = to, now
	return func() { p.Status, p.UpdatedAt = prevStatus, prevUpdated }, nil
}

// ---- projects ----

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	_, err := s.createProject(p)
	return err
}

func (s *Store) createProject(p *models.Project) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projectByProposal[p.ProposalID]; exists {
		return nil, store.ErrDuplicate
	}
	if _, exists := s.projects[p.ID]; exists {
		return nil, store.ErrDuplicate
	}
	cp := *p
	s.projects[p.ID] = &cp
	s.projectByProposal[p.ProposalID] = p.ID
	return func() {
		delete(s.projects, cp.ID)
		delete(s.projectByProposal, cp.ProposalID)
	}, nil
}

func (s *Store) GetProjectByProposal(ctx context.Context, proposalID string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.projectByProposal[proposalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.projects[id]
	return &cp, nil
}

func (s *Store) ListProjectsByBuyer(ctx context.Context, buyerID string) ([]*models.Project, error) {
	return s.listProjects(func(p *models.Project) bool { return p.BuyerID == buyerID }), nil
}

func (s *Store) ListProjectsByAgent(ctx context.Context, agentID string) ([]*models.Project, error) {
	return s.listProjects(func(p *models.Project) bool { return p.AgentID == agentID }), nil
}

func (s *Store) listProjects(match func(*models.Project) bool) []*models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Project, 0)
	for _, p := range s.projects {
		if match(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out
}

// ---- transactions ----

// RunInTx serializes transactions and rolls back every write fn made if it returns an error.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txStore{Store: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// Atomic is true: RunInTx replays its undo log on failure.
func (s *Store) Atomic() bool { return true }

func (s *Store) Close(ctx context.Context) error { return nil }

// txStore records an undo step for every write.
type txStore struct {
	*Store
	undo []func()
}

func (t *txStore) record(undo func(), err error) error {
	if err != nil {
		return err
	}
	t.undo = append(t.undo, undo)
	return nil
}

func (t *txStore) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.Store.mu.Lock()
		t.undo[i]()
		t.Store.mu.Unlock()
	}
	t.undo = nil
}

func (t *txStore) CreateActor(ctx context.Context, a *models.Actor) error {
	return t.record(t.Store.createActor(a))
}

func (t *txStore) CreateRequest(ctx context.Context, r *models.Request) error {
	return t.record(t.Store.createRequest(r))
}

func (t *txStore) UpdateRequestStatus(ctx context.Context, id string, from []models.RequestStatus, to models.RequestStatus, now time.Time) error {
	return t.record(t.Store.updateRequestStatus(id, from, to, now))
}

func (t *txStore) CreateProposal(ctx context.Context, p *models.Proposal) error {
	return t.record(t.Store.createProposal(p))
}

func (t *txStore) UpdateProposalStatus(ctx context.Context, id string, from, to models.ProposalStatus, now time.Time) error {
	return t.record(t.Store.updateProposalStatus(id, from, to, now))
}

func (t *txStore) CreateProject(ctx context.Context, p *models.Project) error {
	return t.record(t.Store.createProject(p))
}

// RunInTx inside a transaction joins it.
func (t *txStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return fn(ctx, t)
}

// ---- helpers ----

func newer(a, b time.Time, idA, idB string) bool {
	if a.Equal(b) {
		return idA > idB
	}
	return a.After(b)
}

func cloneActor(a *models.Actor) *models.Actor {
	cp := *a
	if a.Agent != nil {
		agent := *a.Agent
		agent.Expertise = append([]string(nil), a.Agent.Expertise...)
		cp.Agent = &agent
	}
	if a.Seller != nil {
		seller := *a.Seller
		seller.Products = append([]string(nil), a.Seller.Products...)
		cp.Seller = &seller
	}
	return &cp
}
