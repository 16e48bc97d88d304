package models

import (
	"fmt"
	"time"
)

// Role is the kind of marketplace participant.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAgent  Role = "agent"
)

// Roles lists every role in registration order.
var Roles = []Role{RoleBuyer, RoleSeller, RoleAgent}

// ParseRole validates a role name taken from a URL segment.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleBuyer, RoleSeller, RoleAgent:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Collection is the document collection that stores actors of this role.
func (r Role) Collection() string {
	switch r {
	case RoleAgent:
		return "agents"
	case RoleSeller:
		return "sellers"
	default:
		return "users"
	}
}

// ResponseKey is the JSON key the actor is returned under on register/login.
func (r Role) ResponseKey() string {
	if r == RoleBuyer {
		return "user"
	}
	return string(r)
}

// AgentProfile holds the fields only sourcing agents carry.
type AgentProfile struct {
	Expertise  []string `json:"expertise" bson:"expertise"`
	Experience int      `json:"experience" bson:"experience"`
	Rating     float64  `json:"rating" bson:"rating"`
}

// SellerProfile holds the fields only sellers carry.
type SellerProfile struct {
	BusinessType       string   `json:"businessType" bson:"businessType"`
	Products           []string `json:"products" bson:"products"`
	GSTNumber          string   `json:"gstNumber" bson:"gstNumber"`
	Rating             float64  `json:"rating" bson:"rating"`
	VerificationStatus string   `json:"verificationStatus" bson:"verificationStatus"`
}

// Actor is any registered party. Exactly one of Agent/Seller is set, matching Role;
// buyers carry neither.
type Actor struct {
	ID           string    `json:"id" bson:"_id"`
	Role         Role      `json:"role" bson:"role"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	Company      string    `json:"company" bson:"company"`
	Phone        string    `json:"phone" bson:"phone"`
	Address      string    `json:"address" bson:"address"`
	Status       string    `json:"status,omitempty" bson:"status,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`

	Agent  *AgentProfile  `json:"-" bson:"agent,omitempty"`
	Seller *SellerProfile `json:"-" bson:"seller,omitempty"`
}

// Validate checks that the role payload matches the role tag.
func (a *Actor) Validate() error {
	switch a.Role {
	case RoleBuyer:
		if a.Agent != nil || a.Seller != nil {
			return fmt.Errorf("buyer %s carries a role payload", a.ID)
		}
	case RoleAgent:
		if a.Agent == nil || a.Seller != nil {
			return fmt.Errorf("agent %s must carry exactly an agent payload", a.ID)
		}
	case RoleSeller:
		if a.Seller == nil || a.Agent != nil {
			return fmt.Errorf("seller %s must carry exactly a seller payload", a.ID)
		}
	default:
		return fmt.Errorf("actor %s has unknown role %q", a.ID, a.Role)
	}
	return nil
}

// ActorResponse is the flattened public view of an actor: the common fields plus the
// role payload spliced in.
type ActorResponse struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// agent
	Expertise  []string `json:"expertise,omitempty"`
	Experience *int     `json:"experience,omitempty"`

	// seller
	BusinessType       string   `json:"businessType,omitempty"`
	Products           []string `json:"products,omitempty"`
	GSTNumber          string   `json:"gstNumber,omitempty"`
	VerificationStatus string   `json:"verificationStatus,omitempty"`

	// agent and seller
	Rating *float64 `json:"rating,omitempty"`
}

// ToResponse converts an Actor to its public view. The password hash never leaves.
func (a *Actor) ToResponse() *ActorResponse {
	resp := &ActorResponse{
		ID:        a.ID,
		Role:      a.Role,
		Name:      a.Name,
		Email:     a.Email,
		Company:   a.Company,
		Phone:     a.Phone,
		Address:   a.Address,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Agent != nil {
		experience, rating := a.Agent.Experience, a.Agent.Rating
		resp.Expertise = a.Agent.Expertise
		resp.Experience = &experience
		resp.Rating = &rating
	}
	if a.Seller != nil {
		rating := a.Seller.Rating
		resp.BusinessType = a.Seller.BusinessType
		resp.Products = a.Seller.Products
		resp.GSTNumber = a.Seller.GSTNumber
		resp.VerificationStatus = a.Seller.VerificationStatus
		resp.Rating = &rating
	}
	return resp
}
