package models

// Placeholders used when an enrichment lookup finds nothing.
const (
	UnknownBuyer   = "Unknown Buyer"
	UnknownAgent   = "Unknown Agent"
	UnknownRequest = "Unknown Request"
)

// RequestView is a request enriched with its buyer's display fields.
type RequestView struct {
	Request
	BuyerName    string `json:"buyerName"`
	BuyerEmail   string `json:"buyerEmail"`
	BuyerCompany string `json:"buyerCompany"`
}

// RequestDetail is the single-request view an agent sees before proposing.
type RequestDetail struct {
	RequestView
	BuyerPhone   string `json:"buyerPhone"`
	BuyerAddress string `json:"buyerAddress"`
}

// ProposalRequest carries the display fields of the request a proposal answers.
type ProposalRequest struct {
	RequestTitle    string   `json:"requestTitle"`
	RequestCategory Category `json:"requestCategory"`
	RequestBudget   float64  `json:"requestBudget"`
}

// BuyerProposalView is a proposal as the buyer sees it: which agent sent it and for what.
type BuyerProposalView struct {
	Proposal
	AgentName    string `json:"agentName"`
	AgentCompany string `json:"agentCompany"`
	ProposalRequest
}

// AgentProposalView is a proposal as the agent sees it: whose request it answers.
type AgentProposalView struct {
	Proposal
	BuyerName    string `json:"buyerName"`
	BuyerCompany string `json:"buyerCompany"`
	ProposalRequest
}

// BuyerProjectView is a project as the buyer sees it: who the agent is and what they proposed.
type BuyerProjectView struct {
	Project
	AgentName       string  `json:"agentName"`
	AgentEmail      string  `json:"agentEmail"`
	AgentCompany    string  `json:"agentCompany"`
	AgentPhone      string  `json:"agentPhone"`
	AgentExperience int     `json:"agentExperience"`
	AgentRating     float64 `json:"agentRating"`
	ProposalMessage string  `json:"proposalMessage"`
}

// AgentProjectView is a project as the agent sees it: who the buyer is.
type AgentProjectView struct {
	Project
	BuyerName       string `json:"buyerName"`
	BuyerEmail      string `json:"buyerEmail"`
	BuyerCompany    string `json:"buyerCompany"`
	BuyerPhone      string `json:"buyerPhone"`
	BuyerAddress    string `json:"buyerAddress"`
	ProposalMessage string `json:"proposalMessage"`
}
