// Package storetest holds the behavior every store driver must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
)

// Options describes what the driver under test supports.
type Options struct {
	// Transactional drivers undo every write of a failed RunInTx.
	Transactional bool
}

// Run exercises s. Ids and emails are random so drivers backed by a shared database can
// run it repeatedly.
func Run(t *testing.T, s store.Store, opts Options) {
	t.Helper()
	t.Run("Actors", func(t *testing.T) { testActors(t, s) })
	t.Run("RequestLifecycle", func(t *testing.T) { testRequestLifecycle(t, s) })
	t.Run("ProjectPerProposal", func(t *testing.T) { testProjectPerProposal(t, s) })
	t.Run("RunInTxRollback", func(t *testing.T) {
		if !opts.Transactional {
			t.Skip("driver runs without transactions")
		}
		testRollback(t, s)
	})
}

func newID() string { return uuid.New().String() }

// now is truncated to milliseconds, the coarsest precision any driver stores.
func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func testActors(t *testing.T, s store.Store) {
	ctx := context.Background()
	email := "agent-" + newID() + "@example.com"
	a := &models.Actor{
		ID: newID(), Role: models.RoleAgent, Name: "Agent", Email: email, PasswordHash: "hash",
		Agent:     &models.AgentProfile{Expertise: []string{"textiles", "agro"}, Experience: 3, Rating: 4},
		CreatedAt: now(), UpdatedAt: now(),
	}
	if err := s.CreateActor(ctx, a); err != nil {
		t.Fatalf("CreateActor: %v", err)
	}

	got, err := s.GetActorByEmail(ctx, models.RoleAgent, email)
	if err != nil {
		t.Fatalf("GetActorByEmail: %v", err)
	}
	if got.ID != a.ID || got.PasswordHash != "hash" {
		t.Errorf("actor = %+v", got)
	}
	if got.Agent == nil || len(got.Agent.Expertise) != 2 || got.Agent.Experience != 3 {
		t.Errorf("agent profile = %+v", got.Agent)
	}

	dup := *a
	dup.ID = newID()
	if err := s.CreateActor(ctx, &dup); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate email err = %v, want ErrDuplicate", err)
	}
	if _, err := s.GetActor(ctx, models.RoleBuyer, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetActor(wrong role) err = %v, want ErrNotFound", err)
	}
}

func testRequestLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	buyerID, agentID := newID(), newID()
	created := now()

	older := &models.Request{
		ID: newID(), BuyerID: buyerID, Title: "Older", Category: models.CategoryGoods, Description: "d",
		Budget: 10, Deadline: created.Add(24 * time.Hour), Status: models.RequestPending,
		CreatedAt: created.Add(-time.Minute), UpdatedAt: created.Add(-time.Minute),
	}
	newer := &models.Request{
		ID: newID(), BuyerID: buyerID, Title: "Newer", Category: models.CategoryAgro, Description: "d",
		Budget: 20, Deadline: created.Add(48 * time.Hour), Status: models.RequestActive,
		CreatedAt: created, UpdatedAt: created,
	}
	for _, r := range []*models.Request{older, newer} {
		if err := s.CreateRequest(ctx, r); err != nil {
			t.Fatalf("CreateRequest: %v", err)
		}
	}

	own, err := s.ListRequestsByBuyer(ctx, buyerID)
	if err != nil {
		t.Fatalf("ListRequestsByBuyer: %v", err)
	}
	if len(own) != 2 || own[0].ID != newer.ID {
		t.Fatalf("ListRequestsByBuyer = %d items, newest first expected", len(own))
	}

	p := &models.Proposal{
		ID: newID(), RequestID: newer.ID, BuyerID: buyerID, AgentID: agentID, Message: "m",
		Status: models.ProposalPending, CreatedAt: created, UpdatedAt: created,
	}
	if err := s.CreateProposal(ctx, p); err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}
	byAgent, err := s.ListProposalsByAgent(ctx, agentID)
	if err != nil || len(byAgent) != 1 {
		t.Fatalf("ListProposalsByAgent = %d, %v", len(byAgent), err)
	}

	later := created.Add(time.Minute)
	if err := s.UpdateRequestStatus(ctx, newer.ID, models.OpenRequestStatuses, models.RequestCompleted, later); err != nil {
		t.Fatalf("UpdateRequestStatus: %v", err)
	}
	if err := s.UpdateRequestStatus(ctx, newer.ID, models.OpenRequestStatuses, models.RequestCompleted, later); !errors.Is(err, store.ErrConflict) {
		t.Errorf("second request CAS err = %v, want ErrConflict", err)
	}
	if err := s.UpdateRequestStatus(ctx, newID(), models.OpenRequestStatuses, models.RequestCompleted, later); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing request CAS err = %v, want ErrNotFound", err)
	}

	if err := s.UpdateProposalStatus(ctx, p.ID, models.ProposalPending, models.ProposalAccepted, later); err != nil {
		t.Fatalf("UpdateProposalStatus: %v", err)
	}
	if err := s.UpdateProposalStatus(ctx, p.ID, models.ProposalPending, models.ProposalRejected, later); !errors.Is(err, store.ErrConflict) {
		t.Errorf("second proposal CAS err = %v, want ErrConflict", err)
	}

	got, err := s.GetProposal(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProposal: %v", err)
	}
	if got.Status != models.ProposalAccepted || !got.UpdatedAt.Equal(later) {
		t.Errorf("proposal = %s at %v, want accepted at %v", got.Status, got.UpdatedAt, later)
	}
}

func testProjectPerProposal(t *testing.T, s store.Store) {
	ctx := context.Background()
	created := now()
	proj := &models.Project{
		ID: newID(), ProposalID: newID(), RequestID: newID(), BuyerID: newID(), AgentID: newID(),
		Title: "T", Category: models.CategoryTextiles, Budget: 5000, Deadline: created,
		Status: models.ProjectActive, CreatedAt: created, UpdatedAt: created,
	}
	if err := s.CreateProject(ctx, proj); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	second := *proj
	second.ID = newID()
	if err := s.CreateProject(ctx, &second); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("second project err = %v, want ErrDuplicate", err)
	}

	got, err := s.GetProjectByProposal(ctx, proj.ProposalID)
	if err != nil {
		t.Fatalf("GetProjectByProposal: %v", err)
	}
	if got.ID != proj.ID || got.Budget != 5000 {
		t.Errorf("project = %+v", got)
	}
	byBuyer, err := s.ListProjectsByBuyer(ctx, proj.BuyerID)
	if err != nil || len(byBuyer) != 1 {
		t.Errorf("ListProjectsByBuyer = %d, %v", len(byBuyer), err)
	}
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	created := now()
	req := &models.Request{
		ID: newID(), BuyerID: newID(), Title: "Rollback", Category: models.CategoryGoods, Description: "d",
		Budget: 1, Deadline: created, Status: models.RequestPending, CreatedAt: created, UpdatedAt: created,
	}
	if err := s.CreateRequest(ctx, req); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.UpdateRequestStatus(ctx, req.ID, models.OpenRequestStatuses, models.RequestCompleted, created); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx err = %v, want boom", err)
	}

	got, err := s.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Status != models.RequestPending {
		t.Errorf("status after rollback = %s, want pending", got.Status)
	}
}
