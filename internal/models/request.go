package models

import (
	"strings"
	"time"
)

// Category of goods a request is sourcing.
type Category string

const (
	CategoryGoods    Category = "goods"
	CategoryTextiles Category = "textiles"
	CategoryAgro     Category = "agro"
)

// Categories lists the accepted request categories.
var Categories = []Category{CategoryGoods, CategoryTextiles, CategoryAgro}

// ParseCategory normalizes case and reports whether c is a known category.
func ParseCategory(c string) (Category, bool) {
	cat := Category(strings.ToLower(strings.TrimSpace(c)))
	for _, known := range Categories {
		if cat == known {
			return cat, true
		}
	}
	return "", false
}

// RequestStatus is the lifecycle state of a sourcing request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestActive    RequestStatus = "active"
	RequestCompleted RequestStatus = "completed"
	RequestCancelled RequestStatus = "cancelled"
)

// OpenRequestStatuses are the states in which a request still takes proposals and acceptances.
var OpenRequestStatuses = []RequestStatus{RequestPending, RequestActive}

// IsOpen reports whether proposals can still be made and accepted.
func (s RequestStatus) IsOpen() bool {
	for _, open := range OpenRequestStatuses {
		if s == open {
			return true
		}
	}
	return false
}

// Request is a buyer's sourcing need. BuyerID never changes after creation.
type Request struct {
	ID          string        `json:"_id" bson:"_id"`
	BuyerID     string        `json:"buyerId" bson:"buyerId"`
	Title       string        `json:"title" bson:"title"`
	Category    Category      `json:"category" bson:"category"`
	Description string        `json:"description" bson:"description"`
	Budget      float64       `json:"budget" bson:"budget"`
	Deadline    time.Time     `json:"deadline" bson:"deadline"`
	Status      RequestStatus `json:"status" bson:"status"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// CreateRequestInput is the buyer-supplied part of a new request. Fields are omitted
// from JSON when empty so schema validation sees them as missing; Budget is a pointer so
// an explicit 0 reaches the schema as a value.
type CreateRequestInput struct {
	Title       string   `json:"title,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Budget      *float64 `json:"budget,omitempty"`
	Deadline    string   `json:"deadline,omitempty"`
}
