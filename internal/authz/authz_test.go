package authz

import (
	"net/http"
	"testing"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
)

func TestEnforcer_RoutePolicy(t *testing.T) {
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	tests := []struct {
		role   models.Role
		path   string
		method string
		want   bool
	}{
		{models.RoleBuyer, "/api/buyer/requests", http.MethodPost, true},
		{models.RoleBuyer, "/api/buyer/proposals", http.MethodGet, true},
		{models.RoleBuyer, "/api/proposals/p1/accept", http.MethodPut, true},
		{models.RoleBuyer, "/api/proposals/p1/reject", http.MethodPut, true},
		{models.RoleBuyer, "/api/proposals", http.MethodPost, false},
		{models.RoleBuyer, "/api/agent/requests", http.MethodGet, false},

		{models.RoleAgent, "/api/agent/requests", http.MethodGet, true},
		{models.RoleAgent, "/api/agent/requests/r1", http.MethodGet, true},
		{models.RoleAgent, "/api/proposals", http.MethodPost, true},
		{models.RoleAgent, "/api/proposals/p1/accept", http.MethodPut, false},
		{models.RoleAgent, "/api/buyer/proposals", http.MethodGet, false},
		{models.RoleAgent, "/api/buyer/projects", http.MethodGet, false},
		{models.RoleAgent, "/api/agent/requests", http.MethodPost, false},

		{models.RoleSeller, "/api/seller/profile", http.MethodGet, true},
		{models.RoleSeller, "/api/agent/requests", http.MethodGet, false},
		{models.RoleSeller, "/api/buyer/requests", http.MethodGet, false},
	}
	for _, tt := range tests {
		if got := e.Allow(tt.role, tt.path, tt.method); got != tt.want {
			t.Errorf("Allow(%s, %s %s) = %v, want %v", tt.role, tt.method, tt.path, got, tt.want)
		}
	}
}
