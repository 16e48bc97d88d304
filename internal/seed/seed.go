// Package seed loads development fixtures into a store.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kartikbazzad/bunbase/marketplace/internal/auth"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/services"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the fixture file layout.
type Fixtures struct {
	Password string           `yaml:"password"`
	Buyers   []ActorFixture   `yaml:"buyers"`
	Agents   []ActorFixture   `yaml:"agents"`
	Sellers  []ActorFixture   `yaml:"sellers"`
	Requests []RequestFixture `yaml:"requests"`
}

// ActorFixture describes one actor; role-specific fields are ignored for other roles.
type ActorFixture struct {
	Name               string   `yaml:"name"`
	Email              string   `yaml:"email"`
	Company            string   `yaml:"company"`
	Phone              string   `yaml:"phone"`
	Address            string   `yaml:"address"`
	Expertise          []string `yaml:"expertise"`
	Experience         int      `yaml:"experience"`
	Rating             float64  `yaml:"rating"`
	BusinessType       string   `yaml:"businessType"`
	Products           []string `yaml:"products"`
	GSTNumber          string   `yaml:"gstNumber"`
	VerificationStatus string   `yaml:"verificationStatus"`
}

// RequestFixture describes a buyer's request and an optional pending proposal on it.
type RequestFixture struct {
	Buyer       string           `yaml:"buyer"`
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Category    string           `yaml:"category"`
	Budget      float64          `yaml:"budget"`
	Deadline    string           `yaml:"deadline"`
	Proposal    *ProposalFixture `yaml:"proposal"`
}

// ProposalFixture is a pending proposal from the agent with the given email.
type ProposalFixture struct {
	Agent   string `yaml:"agent"`
	Message string `yaml:"message"`
}

// Summary counts what Run inserted.
type Summary struct {
	Actors    int
	Requests  int
	Proposals int
}

// Parse decodes a fixture document.
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	if f.Password == "" {
		return nil, errors.New("fixtures: password is required")
	}
	return &f, nil
}

// Default returns the embedded development fixtures.
func Default() *Fixtures {
	f, err := Parse(defaultFixtures)
	if err != nil {
		panic(err)
	}
	return f
}

// Run inserts the fixtures. Actors whose email exists, requests whose buyer already has
// one with the same title, and proposals the agent already made on that request are
// skipped, so Run can be repeated.
func Run(ctx context.Context, s store.Store, f *Fixtures) (Summary, error) {
	var sum Summary
	log := logger.FromContext(ctx)
	now := time.Now().UTC()

	hash, err := auth.HashPassword(f.Password)
	if err != nil {
		return sum, err
	}

	ids := make(map[models.Role]map[string]string)
	groups := []struct {
		role     models.Role
		fixtures []ActorFixture
	}{
		{models.RoleBuyer, f.Buyers},
		{models.RoleAgent, f.Agents},
		{models.RoleSeller, f.Sellers},
	}
	for _, g := range groups {
		ids[g.role] = make(map[string]string)
		for _, af := range g.fixtures {
			id, created, err := ensureActor(ctx, s, g.role, af, hash, now)
			if err != nil {
				return sum, err
			}
			ids[g.role][af.Email] = id
			if created {
				sum.Actors++
				log.Info("Seeded actor", "role", g.role, "email", af.Email)
			}
		}
	}

	for _, rf := range f.Requests {
		buyerID, ok := ids[models.RoleBuyer][rf.Buyer]
		if !ok {
			return sum, fmt.Errorf("fixtures: request %q references unknown buyer %s", rf.Title, rf.Buyer)
		}
		req, created, err := ensureRequest(ctx, s, buyerID, rf, now)
		if err != nil {
			return sum, err
		}
		if created {
			sum.Requests++
			log.Info("Seeded request", "title", rf.Title)
		}

		if rf.Proposal == nil {
			continue
		}
		agentID, ok := ids[models.RoleAgent][rf.Proposal.Agent]
		if !ok {
			return sum, fmt.Errorf("fixtures: proposal on %q references unknown agent %s", rf.Title, rf.Proposal.Agent)
		}
		created, err = ensureProposal(ctx, s, req, agentID, rf.Proposal.Message, now)
		if err != nil {
			return sum, err
		}
		if created {
			sum.Proposals++
		}
	}
	return sum, nil
}

func ensureActor(ctx context.Context, s store.Store, role models.Role, af ActorFixture, hash string, now time.Time) (string, bool, error) {
	existing, err := s.GetActorByEmail(ctx, role, af.Email)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", false, err
	}

	a := &models.Actor{
		ID:           uuid.New().String(),
		Role:         role,
		Name:         af.Name,
		Email:        af.Email,
		PasswordHash: hash,
		Company:      af.Company,
		Phone:        af.Phone,
		Address:      af.Address,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch role {
	case models.RoleAgent:
		a.Agent = &models.AgentProfile{Expertise: af.Expertise, Experience: af.Experience, Rating: af.Rating}
	case models.RoleSeller:
		status := af.VerificationStatus
		if status == "" {
			status = "pending"
		}
		a.Seller = &models.SellerProfile{
			BusinessType:       af.BusinessType,
			Products:           af.Products,
			GSTNumber:          af.GSTNumber,
			Rating:             af.Rating,
			VerificationStatus: status,
		}
	}
	if err := a.Validate(); err != nil {
		return "", false, err
	}
	if err := s.CreateActor(ctx, a); err != nil {
		return "", false, err
	}
	return a.ID, true, nil
}

func ensureRequest(ctx context.Context, s store.Store, buyerID string, rf RequestFixture, now time.Time) (*models.Request, bool, error) {
	existing, err := s.ListRequestsByBuyer(ctx, buyerID)
	if err != nil {
		return nil, false, err
	}
	for _, r := range existing {
		if r.Title == rf.Title {
			return r, false, nil
		}
	}

	category, ok := models.ParseCategory(rf.Category)
	if !ok {
		return nil, false, fmt.Errorf("fixtures: request %q has unknown category %q", rf.Title, rf.Category)
	}
	deadline, err := services.ParseDeadline(rf.Deadline)
	if err != nil {
		return nil, false, fmt.Errorf("fixtures: request %q: %w", rf.Title, err)
	}
	req := &models.Request{
		ID:          uuid.New().String(),
		BuyerID:     buyerID,
		Title:       rf.Title,
		Category:    category,
		Description: rf.Description,
		Budget:      rf.Budget,
		Deadline:    deadline,
		Status:      models.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.CreateRequest(ctx, req); err != nil {
		return nil, false, err
	}
	return req, true, nil
}

func ensureProposal(ctx context.Context, s store.Store, req *models.Request, agentID, message string, now time.Time) (bool, error) {
	existing, err := s.ListProposalsByAgent(ctx, agentID)
	if err != nil {
		return false, err
	}
	for _, p := range existing {
		if p.RequestID == req.ID {
			return false, nil
		}
	}
	p := &models.Proposal{
		ID:        uuid.New().String(),
		RequestID: req.ID,
		BuyerID:   req.BuyerID,
		AgentID:   agentID,
		Message:   message,
		Status:    models.ProposalPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateProposal(ctx, p); err != nil {
		return false, err
	}
	return true, nil
}
