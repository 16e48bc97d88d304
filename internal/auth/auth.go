// Package auth registers and logs in marketplace actors and issues their session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kartikbazzad/bunbase/marketplace/internal/metrics"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
	"github.com/kartikbazzad/bunbase/marketplace/internal/validate"
	apperrors "github.com/kartikbazzad/bunbase/marketplace/pkg/errors"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

// RegisterInput is the registration payload for every role. Role-specific fields are
// ignored for roles that do not carry them.
type RegisterInput struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Company  string `json:"company,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`

	// agent
	Expertise  []string `json:"expertise,omitempty"`
	Experience *int     `json:"experience,omitempty"`

	// seller
	BusinessType string   `json:"businessType,omitempty"`
	Products     []string `json:"products,omitempty"`
	GSTNumber    string   `json:"gstNumber,omitempty"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is what register and login return.
type Session struct {
	Actor *models.Actor
	Token string
}

// Auth handles authentication operations
type Auth struct {
	actors    store.ActorRepository
	issuer    *Issuer
	validator *validate.Validator
	now       func() time.Time
}

// NewAuth creates a new Auth instance
func NewAuth(actors store.ActorRepository, issuer *Issuer, validator *validate.Validator) *Auth {
	return &Auth{actors: actors, issuer: issuer, validator: validator, now: time.Now}
}

// Issuer returns the token issuer, for middleware wiring.
func (a *Auth) Issuer() *Issuer {
	return a.issuer
}

var registerSchemas = map[models.Role]string{
	models.RoleBuyer:  validate.RegisterBuyer,
	models.RoleAgent:  validate.RegisterAgent,
	models.RoleSeller: validate.RegisterSeller,
}

// Register creates an actor of the given role and issues a token for it.
func (a *Auth) Register(ctx context.Context, role models.Role, in RegisterInput) (sess *Session, err error) {
	defer func() {
		metrics.AuthTotal.WithLabelValues("register", string(role), metrics.StatusLabel(err)).Inc()
	}()

	normalizeRegister(&in)
	schema, ok := registerSchemas[role]
	if !ok {
		return nil, apperrors.Validation("Unknown role")
	}
	if err := a.validator.Validate(schema, in); err != nil {
		return nil, err
	}
	if len(in.Password) > MaxPasswordBytes {
		return nil, apperrors.Validation(fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}

	if _, err := a.actors.GetActorByEmail(ctx, role, in.Email); err == nil {
		return nil, apperrors.Conflict("Email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := a.now().UTC()
	actor := &models.Actor{
		ID:           uuid.New().String(),
		Role:         role,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Company:      in.Company,
		Phone:        in.Phone,
		Address:      in.Address,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch role {
	case models.RoleAgent:
		actor.Agent = &models.AgentProfile{Expertise: in.Expertise, Experience: *in.Experience}
	case models.RoleSeller:
		products := in.Products
		if products == nil {
			products = []string{}
		}
		actor.Seller = &models.SellerProfile{
			BusinessType:       in.BusinessType,
			Products:           products,
			GSTNumber:          in.GSTNumber,
			VerificationStatus: "pending",
		}
	}

	if err := a.actors.CreateActor(ctx, actor); err != nil {
		// Lost a race with another registration for the same email.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("Email already registered")
		}
		return nil, apperrors.Internal(err)
	}

	token, err := a.issuer.Issue(actor.ID, actor.Email, role)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Actor registered", "role", role, "actor_id", actor.ID)
	return &Session{Actor: actor, Token: token}, nil
}

// Login verifies credentials and issues a token. Nothing is written.
func (a *Auth) Login(ctx context.Context, role models.Role, in LoginInput) (sess *Session, err error) {
	defer func() {
		metrics.AuthTotal.WithLabelValues("login", string(role), metrics.StatusLabel(err)).Inc()
	}()

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperrors.Validation("Email and password are required")
	}

	actor, err := a.actors.GetActorByEmail(ctx, role, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Authentication("Invalid credentials")
		}
		return nil, apperrors.Internal(err)
	}
	if !CheckPassword(actor.PasswordHash, in.Password) {
		return nil, apperrors.Authentication("Invalid credentials")
	}

	token, err := a.issuer.Issue(actor.ID, actor.Email, role)
	if err != nil {
		return nil, err
	}
	return &Session{Actor: actor, Token: token}, nil
}

// Profile returns the actor behind a verified token.
func (a *Auth) Profile(ctx context.Context, role models.Role, id string) (*models.Actor, error) {
	actor, err := a.actors.GetActor(ctx, role, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound(roleLabel(role) + " not found")
		}
		return nil, apperrors.Internal(err)
	}
	return actor, nil
}

func roleLabel(role models.Role) string {
	switch role {
	case models.RoleAgent:
		return "Agent"
	case models.RoleSeller:
		return "Seller"
	default:
		return "User"
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRegister(in *RegisterInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Company = strings.TrimSpace(in.Company)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.BusinessType = strings.TrimSpace(in.BusinessType)
	in.GSTNumber = strings.TrimSpace(in.GSTNumber)
}
