package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store/storetest"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newRequest(id, buyerID string, offset time.Duration) *models.Request {
	return &models.Request{
		ID:        id,
		BuyerID:   buyerID,
		Title:     "Request " + id,
		Category:  models.CategoryGoods,
		Budget:    100,
		Status:    models.RequestPending,
		CreatedAt: base.Add(offset),
		UpdatedAt: base.Add(offset),
	}
}

func TestActors_EmailUniquePerRole(t *testing.T) {
	ctx := context.Background()
	s := New()

	buyer := &models.Actor{ID: "b1", Role: models.RoleBuyer, Email: "Buyer@Example.com"}
	if err := s.CreateActor(ctx, buyer); err != nil {
		t.Fatalf("CreateActor: %v", err)
	}
	dup := &models.Actor{ID: "b2", Role: models.RoleBuyer, Email: "buyer@example.com"}
	if err := s.CreateActor(ctx, dup); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate email err = %v, want ErrDuplicate", err)
	}

	// Same email under another role is a different account.
	agent := &models.Actor{ID: "a1", Role: models.RoleAgent, Email: "buyer@example.com", Agent: &models.AgentProfile{}}
	if err := s.CreateActor(ctx, agent); err != nil {
		t.Errorf("CreateActor(agent): %v", err)
	}

	got, err := s.GetActorByEmail(ctx, models.RoleBuyer, "BUYER@example.com")
	if err != nil {
		t.Fatalf("GetActorByEmail: %v", err)
	}
	if got.ID != "b1" {
		t.Errorf("ID = %s, want b1", got.ID)
	}
	if _, err := s.GetActor(ctx, models.RoleSeller, "b1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetActor(seller) err = %v, want ErrNotFound", err)
	}
}

func TestActors_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := &models.Actor{ID: "a1", Role: models.RoleAgent, Email: "a@x.io", Agent: &models.AgentProfile{Expertise: []string{"agro"}}}
	if err := s.CreateActor(ctx, a); err != nil {
		t.Fatalf("CreateActor: %v", err)
	}

	got, _ := s.GetActor(ctx, models.RoleAgent, "a1")
	got.Agent.Expertise[0] = "mutated"

	again, _ := s.GetActor(ctx, models.RoleAgent, "a1")
	if again.Agent.Expertise[0] != "agro" {
		t.Errorf("stored actor was mutated through a returned copy")
	}
}

func TestRequests_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, id := range []string{"r1", "r2", "r3"} {
		if err := s.CreateRequest(ctx, newRequest(id, "b1", time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("CreateRequest: %v", err)
		}
	}
	if err := s.CreateRequest(ctx, newRequest("r4", "b2", time.Hour)); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	own, _ := s.ListRequestsByBuyer(ctx, "b1")
	if len(own) != 3 || own[0].ID != "r3" || own[2].ID != "r1" {
		t.Errorf("ListRequestsByBuyer order = %v", ids(own))
	}
	all, _ := s.ListRequests(ctx)
	if len(all) != 4 || all[0].ID != "r4" {
		t.Errorf("ListRequests order = %v", ids(all))
	}
	none, _ := s.ListRequestsByBuyer(ctx, "nobody")
	if none == nil || len(none) != 0 {
		t.Errorf("empty list = %v, want non-nil empty slice", none)
	}
}

func TestUpdateRequestStatus_CAS(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateRequest(ctx, newRequest("r1", "b1", 0))

	later := base.Add(time.Hour)
	if err := s.UpdateRequestStatus(ctx, "r1", models.OpenRequestStatuses, models.RequestCompleted, later); err != nil {
		t.Fatalf("first CAS: %v", err)
	}
	err := s.UpdateRequestStatus(ctx, "r1", models.OpenRequestStatuses, models.RequestCompleted, later)
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("second CAS err = %v, want ErrConflict", err)
	}
	if err := s.UpdateRequestStatus(ctx, "missing", models.OpenRequestStatuses, models.RequestCompleted, later); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing CAS err = %v, want ErrNotFound", err)
	}

	got, _ := s.GetRequest(ctx, "r1")
	if got.Status != models.RequestCompleted || !got.UpdatedAt.Equal(later) {
		t.Errorf("request = %s at %v", got.Status, got.UpdatedAt)
	}
}

func TestProposals_CASAndLists(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := &models.Proposal{ID: "p1", RequestID: "r1", BuyerID: "b1", AgentID: "a1", Status: models.ProposalPending, CreatedAt: base}
	if err := s.CreateProposal(ctx, p); err != nil {
		t.Fatalf("CreateProposal: %v", err)
	}

	if err := s.UpdateProposalStatus(ctx, "p1", models.ProposalPending, models.ProposalRejected, base); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := s.UpdateProposalStatus(ctx, "p1", models.ProposalPending, models.ProposalAccepted, base); !errors.Is(err, store.ErrConflict) {
		t.Errorf("accept after reject err = %v, want ErrConflict", err)
	}

	byAgent, _ := s.ListProposalsByAgent(ctx, "a1")
	byBuyer, _ := s.ListProposalsByBuyer(ctx, "b1")
	rejected, _ := s.ListProposalsByStatus(ctx, models.ProposalRejected)
	if len(byAgent) != 1 || len(byBuyer) != 1 || len(rejected) != 1 {
		t.Errorf("lists = %d/%d/%d, want 1/1/1", len(byAgent), len(byBuyer), len(rejected))
	}
}

func TestProjects_OnePerProposal(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateProject(ctx, &models.Project{ID: "pj1", ProposalID: "p1", BuyerID: "b1", AgentID: "a1"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	err := s.CreateProject(ctx, &models.Project{ID: "pj2", ProposalID: "p1"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("second project err = %v, want ErrDuplicate", err)
	}

	got, err := s.GetProjectByProposal(ctx, "p1")
	if err != nil || got.ID != "pj1" {
		t.Errorf("GetProjectByProposal = %v, %v", got, err)
	}
	byAgent, _ := s.ListProjectsByAgent(ctx, "a1")
	if len(byAgent) != 1 {
		t.Errorf("ListProjectsByAgent = %d, want 1", len(byAgent))
	}
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateRequest(ctx, newRequest("r1", "b1", 0))
	_ = s.CreateProposal(ctx, &models.Proposal{ID: "p1", RequestID: "r1", Status: models.ProposalPending})

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.UpdateRequestStatus(ctx, "r1", models.OpenRequestStatuses, models.RequestCompleted, base); err != nil {
			return err
		}
		if err := tx.UpdateProposalStatus(ctx, "p1", models.ProposalPending, models.ProposalAccepted, base); err != nil {
			return err
		}
		if err := tx.CreateProject(ctx, &models.Project{ID: "pj1", ProposalID: "p1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx err = %v, want boom", err)
	}

	req, _ := s.GetRequest(ctx, "r1")
	if req.Status != models.RequestPending {
		t.Errorf("request status = %s, want pending after rollback", req.Status)
	}
	p, _ := s.GetProposal(ctx, "p1")
	if p.Status != models.ProposalPending {
		t.Errorf("proposal status = %s, want pending after rollback", p.Status)
	}
	if _, err := s.GetProjectByProposal(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("project survived rollback: %v", err)
	}
}

func TestRunInTx_Commits(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		return tx.RunInTx(ctx, func(ctx context.Context, inner store.Store) error {
			return inner.CreateRequest(ctx, newRequest("r1", "b1", 0))
		})
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}
	if _, err := s.GetRequest(ctx, "r1"); err != nil {
		t.Errorf("committed request missing: %v", err)
	}
}

func ids(reqs []*models.Request) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.ID
	}
	return out
}

func TestConformance(t *testing.T) {
	storetest.Run(t, New(), storetest.Options{Transactional: true})
}
