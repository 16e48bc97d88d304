package models

import "time"

// ProposalStatus is the state of an agent's offer. pending is initial; accepted and
// rejected are terminal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

// IsTerminal reports whether no further transition is possible.
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalAccepted || s == ProposalRejected
}

// CanTransitionTo reports whether s -> next is legal. Only pending -> accepted and
// pending -> rejected are.
func (s ProposalStatus) CanTransitionTo(next ProposalStatus) bool {
	return s == ProposalPending && next.IsTerminal()
}

// Proposal is an agent's response to a request. BuyerID is copied from the request when
// the proposal is created and is not re-read afterwards.
type Proposal struct {
	ID        string         `json:"_id" bson:"_id"`
	RequestID string         `json:"requestId" bson:"requestId"`
	BuyerID   string         `json:"buyerId" bson:"buyerId"`
	AgentID   string         `json:"agentId" bson:"agentId"`
	Message   string         `json:"message" bson:"message"`
	Status    ProposalStatus `json:"status" bson:"status"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// CreateProposalInput is the agent-supplied part of a new proposal.
type CreateProposalInput struct {
	RequestID string `json:"requestId,omitempty"`
	Message   string `json:"message,omitempty"`
}
