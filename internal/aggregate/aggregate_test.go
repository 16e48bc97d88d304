package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store/memory"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// flakyActors fails lookups for the listed ids.
type flakyActors struct {
	ActorLookup
	fail map[string]bool
}

func (f *flakyActors) GetActor(ctx context.Context, role models.Role, id string) (*models.Actor, error) {
	if f.fail[id] {
		return nil, errors.New("lookup timeout")
	}
	return f.ActorLookup.GetActor(ctx, role, id)
}

func newEnricher(t *testing.T, actors ActorLookup, s *memory.Store) *Enricher {
	t.Helper()
	e, err := New(actors, s, s, Options{Workers: 4, CacheSize: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Release)
	return e
}

func seedBuyer(t *testing.T, s *memory.Store, id string) {
	t.Helper()
	err := s.CreateActor(context.Background(), &models.Actor{
		ID: id, Role: models.RoleBuyer, Name: "Buyer " + id, Email: id + "@example.com",
		Company: "Co " + id, Phone: "555-" + id, Address: "1 Main St",
	})
	if err != nil {
		t.Fatalf("CreateActor: %v", err)
	}
}

func TestRequests_EnrichAndPlaceholder(t *testing.T) {
	s := memory.New()
	seedBuyer(t, s, "b1")
	e := newEnricher(t, s, s)

	reqs := []*models.Request{
		{ID: "r1", BuyerID: "b1", Title: "Known"},
		{ID: "r2", BuyerID: "ghost", Title: "Orphan"},
	}
	views, err := e.Requests(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Requests: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}
	if views[0].BuyerName != "Buyer b1" || views[0].BuyerCompany != "Co b1" {
		t.Errorf("views[0] = %+v", views[0])
	}
	if views[1].BuyerName != models.UnknownBuyer {
		t.Errorf("views[1].BuyerName = %q, want %q", views[1].BuyerName, models.UnknownBuyer)
	}
}

func TestRequests_DropsFailedLookupsAndKeepsOrder(t *testing.T) {
	s := memory.New()
	var reqs []*models.Request
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("b%02d", i)
		seedBuyer(t, s, id)
		reqs = append(reqs, &models.Request{ID: fmt.Sprintf("r%02d", i), BuyerID: id})
	}
	e := newEnricher(t, &flakyActors{ActorLookup: s, fail: map[string]bool{"b03": true, "b11": true}}, s)

	views, err := e.Requests(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Requests: %v", err)
	}
	if len(views) != 18 {
		t.Fatalf("got %d views, want 18", len(views))
	}
	prev := ""
	for _, v := range views {
		if v.ID == "r03" || v.ID == "r11" {
			t.Errorf("record %s should have been dropped", v.ID)
		}
		if v.ID <= prev {
			t.Errorf("order broken: %s after %s", v.ID, prev)
		}
		prev = v.ID
	}
}

func TestRequestDetail(t *testing.T) {
	s := memory.New()
	seedBuyer(t, s, "b1")
	e := newEnricher(t, &flakyActors{ActorLookup: s, fail: map[string]bool{"bad": true}}, s)

	d, err := e.RequestDetail(context.Background(), &models.Request{ID: "r1", BuyerID: "b1"})
	if err != nil {
		t.Fatalf("RequestDetail: %v", err)
	}
	if d.BuyerPhone != "555-b1" || d.BuyerAddress != "1 Main St" {
		t.Errorf("detail = %+v", d)
	}

	if _, err := e.RequestDetail(context.Background(), &models.Request{ID: "r2", BuyerID: "bad"}); err == nil {
		t.Error("RequestDetail should return lookup failures")
	}
}

func TestProposals(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedBuyer(t, s, "b1")
	_ = s.CreateActor(ctx, &models.Actor{
		ID: "a1", Role: models.RoleAgent, Name: "Agent", Email: "a@example.com", Company: "Sourcing Ltd",
		Agent: &models.AgentProfile{Expertise: []string{"goods"}, Experience: 5, Rating: 4.5},
	})
	_ = s.CreateRequest(ctx, &models.Request{ID: "r1", BuyerID: "b1", Title: "Tableware", Category: models.CategoryGoods, Budget: 3000})
	e := newEnricher(t, s, s)

	props := []*models.Proposal{
		{ID: "p1", RequestID: "r1", BuyerID: "b1", AgentID: "a1", CreatedAt: t0},
		{ID: "p2", RequestID: "gone", BuyerID: "b1", AgentID: "ghost", CreatedAt: t0},
	}

	forBuyer, err := e.ProposalsForBuyer(ctx, props)
	if err != nil {
		t.Fatalf("ProposalsForBuyer: %v", err)
	}
	if forBuyer[0].AgentName != "Agent" || forBuyer[0].RequestTitle != "Tableware" || forBuyer[0].RequestBudget != 3000 {
		t.Errorf("forBuyer[0] = %+v", forBuyer[0])
	}
	if forBuyer[1].AgentName != models.UnknownAgent || forBuyer[1].RequestTitle != models.UnknownRequest {
		t.Errorf("forBuyer[1] = %+v", forBuyer[1])
	}

	// Placeholder views still carry every key, zero-valued.
	raw, err := json.Marshal(forBuyer[1])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := map[string]any{
		"agentName":       models.UnknownAgent,
		"agentCompany":    "",
		"requestTitle":    models.UnknownRequest,
		"requestCategory": "",
		"requestBudget":   float64(0),
	}
	for key, val := range want {
		got, ok := doc[key]
		if !ok {
			t.Errorf("placeholder view has no %q key: %s", key, raw)
			continue
		}
		if got != val {
			t.Errorf("%s = %v, want %v", key, got, val)
		}
	}

	forAgent, err := e.ProposalsForAgent(ctx, props[:1])
	if err != nil {
		t.Fatalf("ProposalsForAgent: %v", err)
	}
	if forAgent[0].BuyerName != "Buyer b1" || forAgent[0].RequestCategory != models.CategoryGoods {
		t.Errorf("forAgent[0] = %+v", forAgent[0])
	}

	forAgent, err = e.ProposalsForAgent(ctx, []*models.Proposal{{ID: "p3", RequestID: "gone", BuyerID: "ghost", AgentID: "a1"}})
	if err != nil {
		t.Fatalf("ProposalsForAgent(missing refs): %v", err)
	}
	raw, err = json.Marshal(forAgent[0])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	doc = nil
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc["buyerName"] != models.UnknownBuyer || doc["buyerCompany"] != "" || doc["requestBudget"] != float64(0) {
		t.Errorf("agent placeholder view = %s", raw)
	}
	if _, ok := doc["agentName"]; ok {
		t.Errorf("agent view carries agentName: %s", raw)
	}
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedBuyer(t, s, "b1")
	_ = s.CreateActor(ctx, &models.Actor{
		ID: "a1", Role: models.RoleAgent, Name: "Agent", Email: "a@example.com", Phone: "555-a1",
		Agent: &models.AgentProfile{Experience: 5, Rating: 4.5},
	})
	_ = s.CreateProposal(ctx, &models.Proposal{ID: "p1", Message: "We can deliver in 6 weeks"})
	e := newEnricher(t, s, s)

	projects := []*models.Project{{ID: "pj1", ProposalID: "p1", BuyerID: "b1", AgentID: "a1"}}

	forBuyer, err := e.ProjectsForBuyer(ctx, projects)
	if err != nil {
		t.Fatalf("ProjectsForBuyer: %v", err)
	}
	v := forBuyer[0]
	if v.AgentPhone != "555-a1" || v.AgentExperience != 5 || v.AgentRating != 4.5 || v.ProposalMessage != "We can deliver in 6 weeks" {
		t.Errorf("buyer project view = %+v", v)
	}

	forAgent, err := e.ProjectsForAgent(ctx, projects)
	if err != nil {
		t.Fatalf("ProjectsForAgent: %v", err)
	}
	if forAgent[0].BuyerAddress != "1 Main St" || forAgent[0].ProposalMessage == "" {
		t.Errorf("agent project view = %+v", forAgent[0])
	}
}

func TestEnrich_CancelledContext(t *testing.T) {
	s := memory.New()
	e := newEnricher(t, s, s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Requests(ctx, []*models.Request{{ID: "r1", BuyerID: "b1"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
