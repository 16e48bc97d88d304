package auth

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store/memory"
	"github.com/kartikbazzad/bunbase/marketplace/internal/validate"
	apperrors "github.com/kartikbazzad/bunbase/marketplace/pkg/errors"
)

const testSecret = "test-secret-0123456789abcdef0123456789"

func newTestAuth(t *testing.T) (*Auth, *memory.Store) {
	t.Helper()
	issuer, err := NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	s := memory.New()
	return NewAuth(s, issuer, validate.MustNew()), s
}

func intPtr(v int) *int { return &v }

func TestRegister_Buyer(t *testing.T) {
	a, s := newTestAuth(t)
	ctx := context.Background()

	sess, err := a.Register(ctx, models.RoleBuyer, RegisterInput{
		Name:     "Test Buyer",
		Email:    "  TestBuyer@Example.com ",
		Password: "testpassword",
		Company:  "Acme",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sess.Token == "" {
		t.Error("Register returned no token")
	}
	if sess.Actor.Email != "testbuyer@example.com" {
		t.Errorf("Email = %q, want normalized", sess.Actor.Email)
	}
	if sess.Actor.PasswordHash == "testpassword" {
		t.Error("password stored in plain text")
	}

	stored, err := s.GetActorByEmail(ctx, models.RoleBuyer, "testbuyer@example.com")
	if err != nil {
		t.Fatalf("actor not stored: %v", err)
	}
	if !CheckPassword(stored.PasswordHash, "testpassword") {
		t.Error("stored hash does not match password")
	}

	claims, err := a.Issuer().Verify(sess.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != sess.Actor.ID || claims.Role != models.RoleBuyer {
		t.Errorf("claims = %s/%s, want %s/buyer", claims.Subject, claims.Role, sess.Actor.ID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	a, _ := newTestAuth(t)
	ctx := context.Background()
	in := RegisterInput{Name: "B", Email: "b@example.com", Password: "pw"}

	if _, err := a.Register(ctx, models.RoleBuyer, in); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := a.Register(ctx, models.RoleBuyer, in)
	if apperrors.StatusOf(err) != http.StatusConflict {
		t.Errorf("second Register status = %d, want 409 (%v)", apperrors.StatusOf(err), err)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	a, _ := newTestAuth(t)
	_, err := a.Register(context.Background(), models.RoleBuyer, RegisterInput{Name: "No Email"})
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Fatalf("kind = %s, want validation (%v)", apperrors.KindOf(err), err)
	}
	msg := apperrors.PublicMessage(err)
	if !strings.Contains(msg, "email") || !strings.Contains(msg, "password") {
		t.Errorf("message %q should name the missing fields", msg)
	}

	cases := map[string]string{
		"ascii":     strings.Repeat("x", 80),
		"multibyte": strings.Repeat("€", 30),
	}
	for name, pw := range cases {
		t.Run("password too long/"+name, func(t *testing.T) {
			_, err := a.Register(context.Background(), models.RoleBuyer, RegisterInput{
				Name: "Long", Email: "long@example.com", Password: pw,
			})
			if apperrors.StatusOf(err) != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (%v)", apperrors.StatusOf(err), err)
			}
		})
	}

	if _, err := a.Register(context.Background(), models.RoleBuyer, RegisterInput{
		Name: "Edge", Email: "edge@example.com", Password: strings.Repeat("x", MaxPasswordBytes),
	}); err != nil {
		t.Errorf("Register with a %d byte password: %v", MaxPasswordBytes, err)
	}
}

func TestRegister_AgentAndSeller(t *testing.T) {
	a, _ := newTestAuth(t)
	ctx := context.Background()

	agent, err := a.Register(ctx, models.RoleAgent, RegisterInput{
		Name: "Agent", Email: "agent@example.com", Password: "pw",
		Expertise: []string{"textiles"}, Experience: intPtr(0),
	})
	if err != nil {
		t.Fatalf("Register(agent): %v", err)
	}
	if agent.Actor.Agent == nil || agent.Actor.Agent.Expertise[0] != "textiles" {
		t.Errorf("agent profile = %+v", agent.Actor.Agent)
	}

	_, err = a.Register(ctx, models.RoleAgent, RegisterInput{Name: "Agent", Email: "agent2@example.com", Password: "pw"})
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("agent without expertise kind = %s, want validation", apperrors.KindOf(err))
	}

	seller, err := a.Register(ctx, models.RoleSeller, RegisterInput{
		Name: "Seller", Email: "seller@example.com", Password: "pw",
		BusinessType: "Manufacturer", GSTNumber: "GSTIN1234567890",
	})
	if err != nil {
		t.Fatalf("Register(seller): %v", err)
	}
	if seller.Actor.Seller.VerificationStatus != "pending" {
		t.Errorf("VerificationStatus = %q, want pending", seller.Actor.Seller.VerificationStatus)
	}
	if seller.Actor.Seller.Products == nil {
		t.Error("Products should default to an empty list")
	}
}

func TestLogin(t *testing.T) {
	a, _ := newTestAuth(t)
	ctx := context.Background()
	reg, err := a.Register(ctx, models.RoleBuyer, RegisterInput{Name: "B", Email: "b@example.com", Password: "right"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	sess, err := a.Login(ctx, models.RoleBuyer, LoginInput{Email: "B@example.com", Password: "right"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Actor.ID != reg.Actor.ID || sess.Token == "" {
		t.Errorf("Login returned %s with token %q", sess.Actor.ID, sess.Token)
	}

	tests := []struct {
		name   string
		role   models.Role
		in     LoginInput
		status int
	}{
		{"wrong password", models.RoleBuyer, LoginInput{Email: "b@example.com", Password: "wrong"}, http.StatusUnauthorized},
		{"unknown email", models.RoleBuyer, LoginInput{Email: "x@example.com", Password: "right"}, http.StatusUnauthorized},
		{"wrong role", models.RoleAgent, LoginInput{Email: "b@example.com", Password: "right"}, http.StatusUnauthorized},
		{"empty", models.RoleBuyer, LoginInput{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := a.Login(ctx, tt.role, tt.in)
			if sess != nil {
				t.Error("failed login returned a session")
			}
			if got := apperrors.StatusOf(err); got != tt.status {
				t.Errorf("status = %d, want %d (%v)", got, tt.status, err)
			}
		})
	}
}

func TestProfile_NotFound(t *testing.T) {
	a, _ := newTestAuth(t)
	_, err := a.Profile(context.Background(), models.RoleAgent, "missing")
	if apperrors.PublicMessage(err) != "Agent not found" {
		t.Errorf("message = %q, want Agent not found", apperrors.PublicMessage(err))
	}
}

func TestIssuer_Expiry(t *testing.T) {
	issuer, err := NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	start := time.Now()
	issuer.now = func() time.Time { return start }

	token, err := issuer.Issue("a1", "a@example.com", models.RoleAgent)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuer.Verify(token); err != nil {
		t.Fatalf("Verify fresh token: %v", err)
	}

	issuer.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = issuer.Verify(token)
	if apperrors.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", apperrors.StatusOf(err))
	}
}

func TestIssuer_RejectsForeignSecret(t *testing.T) {
	mine, _ := NewIssuer(testSecret, time.Hour)
	theirs, _ := NewIssuer("another-secret-0123456789abcdef0123", time.Hour)

	token, err := theirs.Issue("a1", "a@example.com", models.RoleAgent)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := mine.Verify(token); err == nil {
		t.Error("token signed with another secret verified")
	}
	if _, err := mine.Verify("not-a-jwt"); err == nil {
		t.Error("garbage token verified")
	}
	if _, err := NewIssuer("", time.Hour); err == nil {
		t.Error("NewIssuer accepted an empty secret")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("testpassword")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "testpassword") {
		t.Error("CheckPassword rejected the right password")
	}
	if CheckPassword(hash, "nope") {
		t.Error("CheckPassword accepted a wrong password")
	}
}
