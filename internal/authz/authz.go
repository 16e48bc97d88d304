// Package authz decides which role may call which API route.
package authz

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v3"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

//go:embed model.conf policy.csv
var embedFS embed.FS

// Enforcer wraps the casbin role policy.
type Enforcer struct {
	enforcer *casbin.Enforcer
}

// NewEnforcer loads the embedded model and policy.
func NewEnforcer() (*Enforcer, error) {
	dir, err := os.MkdirTemp("", "marketplace-casbin-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := writeEmbedToDir(dir, "model.conf", "policy.csv"); err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(filepath.Join(dir, "model.conf"), filepath.Join(dir, "policy.csv"))
	if err != nil {
		return nil, err
	}
	return &Enforcer{enforcer: e}, nil
}

func writeEmbedToDir(dir string, names ...string) error {
	for _, name := range names {
		data, err := embedFS.ReadFile(name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
			return err
		}
	}
	return nil
}

// Allow reports whether role may call method on path. Paths are matched with keyMatch2
// ("/api/buyer/*", "/api/proposals/:id/accept"). Enforcement errors deny.
func (e *Enforcer) Allow(role models.Role, path, method string) bool {
	allowed, err := e.enforcer.Enforce(string(role), path, method)
	if err != nil {
		logger.Error("Policy enforcement failed", "role", role, "path", path, "method", method, "error", err)
		return false
	}
	logger.Debug("Policy decision", "role", role, "path", path, "method", method, "allowed", allowed)
	return allowed
}
