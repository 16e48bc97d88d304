// Package aggregate enriches request, proposal and project lists with the display fields of
// the documents they reference. A missing reference yields a placeholder; an unexpected
// lookup failure drops that one record. Neither fails the list.
package aggregate

import (
	"context"
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/bunbase/marketplace/internal/metrics"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

// ActorLookup resolves actors by role and id.
type ActorLookup interface {
	GetActor(ctx context.Context, role models.Role, id string) (*models.Actor, error)
}

// RequestLookup resolves requests by id.
type RequestLookup interface {
	GetRequest(ctx context.Context, id string) (*models.Request, error)
}

// ProposalLookup resolves proposals by id.
type ProposalLookup interface {
	GetProposal(ctx context.Context, id string) (*models.Proposal, error)
}

// Options tunes the worker pool and the per-call lookup cache.
type Options struct {
	Workers   int
	CacheSize int
}

// Enricher joins list results with their references.
type Enricher struct {
	actors    ActorLookup
	requests  RequestLookup
	proposals ProposalLookup
	pool      *ants.Pool
	cacheSize int
}

// New creates an Enricher with a bounded worker pool. Call Release when done.
func New(actors ActorLookup, requests RequestLookup, proposals ProposalLookup, opts Options) (*Enricher, error) {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	pool, err := ants.NewPool(opts.Workers, ants.WithPanicHandler(func(v any) {
		logger.Error("Enrichment worker panic", "panic", v)
	}))
	if err != nil {
		return nil, err
	}
	return &Enricher{
		actors:    actors,
		requests:  requests,
		proposals: proposals,
		pool:      pool,
		cacheSize: opts.CacheSize,
	}, nil
}

// NewFromStore wires every lookup to one store.
func NewFromStore(s store.Store, opts Options) (*Enricher, error) {
	return New(s, s, s, opts)
}

// Release stops the worker pool.
func (e *Enricher) Release() {
	e.pool.Release()
}

// ---- per-call lookups ----

// lookups memoizes references for one enrichment call. A nil value caches "not found";
// errors are never cached.
type lookups struct {
	e         *Enricher
	actors    *lru.Cache[string, *models.Actor]
	requests  *lru.Cache[string, *models.Request]
	proposals *lru.Cache[string, *models.Proposal]
}

func (e *Enricher) newLookups() *lookups {
	// lru.New only fails for a non-positive size.
	actors, _ := lru.New[string, *models.Actor](e.cacheSize)
	requests, _ := lru.New[string, *models.Request](e.cacheSize)
	proposals, _ := lru.New[string, *models.Proposal](e.cacheSize)
	return &lookups{e: e, actors: actors, requests: requests, proposals: proposals}
}

func (l *lookups) actor(ctx context.Context, role models.Role, id string) (*models.Actor, error) {
	key := string(role) + ":" + id
	if a, ok := l.actors.Get(key); ok {
		return a, nil
	}
	a, err := l.e.actors.GetActor(ctx, role, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	l.actors.Add(key, a)
	return a, nil
}

func (l *lookups) request(ctx context.Context, id string) (*models.Request, error) {
	if r, ok := l.requests.Get(id); ok {
		return r, nil
	}
	r, err := l.e.requests.GetRequest(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	l.requests.Add(id, r)
	return r, nil
}

func (l *lookups) proposal(ctx context.Context, id string) (*models.Proposal, error) {
	if p, ok := l.proposals.Get(id); ok {
		return p, nil
	}
	p, err := l.e.proposals.GetProposal(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	l.proposals.Add(id, p)
	return p, nil
}

// ---- fan-out ----

type slot[T any] struct {
	val T
	ok  bool
}

// enrichAll resolves every item on the pool and returns the survivors in input order.
func enrichAll[In any, Out any](ctx context.Context, e *Enricher, kind string, items []In,
	fn func(ctx context.Context, l *lookups, item In) (Out, error)) ([]Out, error) {

	l := e.newLookups()
	slots := make([]slot[Out], len(items))
	log := logger.FromContext(ctx)

	var wg sync.WaitGroup
	for i := range items {
		i := i
		task := func() {
			defer wg.Done()
			out, err := fn(ctx, l, items[i])
			if err != nil {
				log.Warn("Dropping record from enriched list", "kind", kind, "index", i, "error", err)
				metrics.EnrichmentFallbacks.WithLabelValues(kind, metrics.OutcomeDropped).Inc()
				return
			}
			slots[i] = slot[Out]{val: out, ok: true}
		}
		wg.Add(1)
		if err := e.pool.Submit(task); err != nil {
			// Pool released or overloaded; do the work on this goroutine.
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Out, 0, len(items))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.val)
		}
	}
	return out, nil
}

func placeholder(kind string) {
	metrics.EnrichmentFallbacks.WithLabelValues(kind, metrics.OutcomePlaceholder).Inc()
}

// ---- requests ----

// Requests adds buyer name, email and company to each request.
func (e *Enricher) Requests(ctx context.Context, reqs []*models.Request) ([]*models.RequestView, error) {
	return enrichAll(ctx, e, "request", reqs, func(ctx context.Context, l *lookups, r *models.Request) (*models.RequestView, error) {
		buyer, err := l.actor(ctx, models.RoleBuyer, r.BuyerID)
		if err != nil {
			return nil, err
		}
		return requestView(r, buyer), nil
	})
}

// RequestDetail adds buyer contact fields to a single request. Unlike the list methods
// it returns lookup failures.
func (e *Enricher) RequestDetail(ctx context.Context, r *models.Request) (*models.RequestDetail, error) {
	buyer, err := e.newLookups().actor(ctx, models.RoleBuyer, r.BuyerID)
	if err != nil {
		return nil, err
	}
	detail := &models.RequestDetail{RequestView: *requestView(r, buyer)}
	if buyer != nil {
		detail.BuyerPhone = buyer.Phone
		detail.BuyerAddress = buyer.Address
	}
	return detail, nil
}

func requestView(r *models.Request, buyer *models.Actor) *models.RequestView {
	v := &models.RequestView{Request: *r}
	if buyer == nil {
		placeholder("buyer")
		v.BuyerName = models.UnknownBuyer
		return v
	}
	v.BuyerName = buyer.Name
	v.BuyerEmail = buyer.Email
	v.BuyerCompany = buyer.Company
	return v
}

// ---- proposals ----

// ProposalsForBuyer adds the agent's name and company and the request's title, category
// and budget.
func (e *Enricher) ProposalsForBuyer(ctx context.Context, props []*models.Proposal) ([]*models.BuyerProposalView, error) {
	return enrichAll(ctx, e, "proposal", props, func(ctx context.Context, l *lookups, p *models.Proposal) (*models.BuyerProposalView, error) {
		agent, err := l.actor(ctx, models.RoleAgent, p.AgentID)
		if err != nil {
			return nil, err
		}
		req, err := l.request(ctx, p.RequestID)
		if err != nil {
			return nil, err
		}
		v := &models.BuyerProposalView{Proposal: *p, ProposalRequest: proposalRequest(req)}
		if agent == nil {
			placeholder("agent")
			v.AgentName = models.UnknownAgent
		} else {
			v.AgentName = agent.Name
			v.AgentCompany = agent.Company
		}
		return v, nil
	})
}

// ProposalsForAgent adds the buyer's name and company and the request's title, category
// and budget.
func (e *Enricher) ProposalsForAgent(ctx context.Context, props []*models.Proposal) ([]*models.AgentProposalView, error) {
	return enrichAll(ctx, e, "proposal", props, func(ctx context.Context, l *lookups, p *models.Proposal) (*models.AgentProposalView, error) {
		buyer, err := l.actor(ctx, models.RoleBuyer, p.BuyerID)
		if err != nil {
			return nil, err
		}
		req, err := l.request(ctx, p.RequestID)
		if err != nil {
			return nil, err
		}
		v := &models.AgentProposalView{Proposal: *p, ProposalRequest: proposalRequest(req)}
		if buyer == nil {
			placeholder("buyer")
			v.BuyerName = models.UnknownBuyer
		} else {
			v.BuyerName = buyer.Name
			v.BuyerCompany = buyer.Company
		}
		return v, nil
	})
}

// proposalRequest leaves category and budget zero when the request is gone.
func proposalRequest(req *models.Request) models.ProposalRequest {
	if req == nil {
		placeholder("request")
		return models.ProposalRequest{RequestTitle: models.UnknownRequest}
	}
	return models.ProposalRequest{
		RequestTitle:    req.Title,
		RequestCategory: req.Category,
		RequestBudget:   req.Budget,
	}
}

// ---- projects ----

// ProjectsForBuyer adds the agent's contact fields, experience and rating, and the
// accepted proposal's message.
func (e *Enricher) ProjectsForBuyer(ctx context.Context, projects []*models.Project) ([]*models.BuyerProjectView, error) {
	return enrichAll(ctx, e, "project", projects, func(ctx context.Context, l *lookups, p *models.Project) (*models.BuyerProjectView, error) {
		agent, err := l.actor(ctx, models.RoleAgent, p.AgentID)
		if err != nil {
			return nil, err
		}
		message, err := proposalMessage(ctx, l, p.ProposalID)
		if err != nil {
			return nil, err
		}
		v := &models.BuyerProjectView{Project: *p, ProposalMessage: message}
		if agent == nil {
			placeholder("agent")
			v.AgentName = models.UnknownAgent
			return v, nil
		}
		v.AgentName = agent.Name
		v.AgentEmail = agent.Email
		v.AgentCompany = agent.Company
		v.AgentPhone = agent.Phone
		if agent.Agent != nil {
			v.AgentExperience = agent.Agent.Experience
			v.AgentRating = agent.Agent.Rating
		}
		return v, nil
	})
}

// ProjectsForAgent adds the buyer's contact fields and the accepted proposal's message.
func (e *Enricher) ProjectsForAgent(ctx context.Context, projects []*models.Project) ([]*models.AgentProjectView, error) {
	return enrichAll(ctx, e, "project", projects, func(ctx context.Context, l *lookups, p *models.Project) (*models.AgentProjectView, error) {
		buyer, err := l.actor(ctx, models.RoleBuyer, p.BuyerID)
		if err != nil {
			return nil, err
		}
		message, err := proposalMessage(ctx, l, p.ProposalID)
		if err != nil {
			return nil, err
		}
		v := &models.AgentProjectView{Project: *p, ProposalMessage: message}
		if buyer == nil {
			placeholder("buyer")
			v.BuyerName = models.UnknownBuyer
			return v, nil
		}
		v.BuyerName = buyer.Name
		v.BuyerEmail = buyer.Email
		v.BuyerCompany = buyer.Company
		v.BuyerPhone = buyer.Phone
		v.BuyerAddress = buyer.Address
		return v, nil
	})
}

func proposalMessage(ctx context.Context, l *lookups, proposalID string) (string, error) {
	p, err := l.proposal(ctx, proposalID)
	if err != nil {
		return "", err
	}
	if p == nil {
		placeholder("proposal")
		return "", nil
	}
	return p.Message, nil
}

