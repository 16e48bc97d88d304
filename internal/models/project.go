package models

import "time"

// ProjectStatus is the state of an engagement.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

// Project is the engagement materialized when a proposal is accepted. It copies the
// request's terms and keeps the ids of everything it came from.
type Project struct {
	ID          string        `json:"_id" bson:"_id"`
	ProposalID  string        `json:"proposalId" bson:"proposalId"`
	RequestID   string        `json:"requestId" bson:"requestId"`
	BuyerID     string        `json:"buyerId" bson:"buyerId"`
	AgentID     string        `json:"agentId" bson:"agentId"`
	Title       string        `json:"title" bson:"title"`
	Category    Category      `json:"category" bson:"category"`
	Description string        `json:"description" bson:"description"`
	Budget      float64       `json:"budget" bson:"budget"`
	Deadline    time.Time     `json:"deadline" bson:"deadline"`
	Status      ProjectStatus `json:"status" bson:"status"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// NewProjectFromAcceptance builds the project for an accepted proposal.
func NewProjectFromAcceptance(id string, req *Request, p *Proposal, now time.Time) *Project {
	return &Project{
		ID:          id,
		ProposalID:  p.ID,
		RequestID:   p.RequestID,
		BuyerID:     p.BuyerID,
		AgentID:     p.AgentID,
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Budget:      req.Budget,
		Deadline:    req.Deadline,
		Status:      ProjectActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
