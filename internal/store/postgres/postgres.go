// Package postgres is the PostgreSQL store driver. Each document collection maps to a table
// of the same name; the schema is managed by embedded golang-migrate migrations.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds database configuration
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds the connection URL. The password is escaped so special characters survive.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a store.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

var _ store.Store = (*Store)(nil)

// Open creates the connection pool and pings the server. It does not migrate.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool, q: pool}, nil
}

// Migrate applies every pending up migration.
func Migrate(cfg Config) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close(ctx context.Context) error {
	if !s.inTx {
		s.pool.Close()
	}
	return nil
}

// RunInTx runs fn in a read-committed transaction. The status updates inside are
// compare-and-set, so a concurrent acceptance fails with store.ErrConflict.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, &Store{pool: s.pool, q: tx, inTx: true})
	})
}

// Atomic is always true for postgres.
func (s *Store) Atomic() bool { return true }

// ---- actors ----

const actorColumns = "id, name, email, password, company, phone, address, status, created_at, updated_at"

func (s *Store) CreateActor(ctx context.Context, a *models.Actor) error {
	args := []any{a.ID, a.Name, a.Email, a.PasswordHash, a.Company, a.Phone, a.Address, a.Status, a.CreatedAt, a.UpdatedAt}
	var sql string
	switch a.Role {
	case models.RoleAgent:
		sql = `INSERT INTO agents (` + actorColumns + `, expertise, experience, rating)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
		args = append(args, a.Agent.Expertise, a.Agent.Experience, a.Agent.Rating)
	case models.RoleSeller:
		sql = `INSERT INTO sellers (` + actorColumns + `, business_type, products, gst_number, rating, verification_status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
		args = append(args, a.Seller.BusinessType, a.Seller.Products, a.Seller.GSTNumber, a.Seller.Rating, a.Seller.VerificationStatus)
	default:
		sql = `INSERT INTO users (` + actorColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	}
	_, err := s.q.Exec(ctx, sql, args...)
	return mapWriteErr(err)
}

func (s *Store) GetActor(ctx context.Context, role models.Role, id string) (*models.Actor, error) {
	return s.findActor(ctx, role, "id", id)
}

func (s *Store) GetActorByEmail(ctx context.Context, role models.Role, email string) (*models.Actor, error) {
	return s.findActor(ctx, role, "email", email)
}

func (s *Store) findActor(ctx context.Context, role models.Role, column, value string) (*models.Actor, error) {
	a := &models.Actor{Role: role}
	dest := []any{&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Company, &a.Phone, &a.Address, &a.Status, &a.CreatedAt, &a.UpdatedAt}
	cols := actorColumns
	switch role {
	case models.RoleAgent:
		a.Agent = &models.AgentProfile{}
		cols += ", expertise, experience, rating"
		dest = append(dest, &a.Agent.Expertise, &a.Agent.Experience, &a.Agent.Rating)
	case models.RoleSeller:
		a.Seller = &models.SellerProfile{}
		cols += ", business_type, products, gst_number, rating, verification_status"
		dest = append(dest, &a.Seller.BusinessType, &a.Seller.Products, &a.Seller.GSTNumber, &a.Seller.Rating, &a.Seller.VerificationStatus)
	}

	// column is always one of the two literals above.
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", cols, role.Collection(), column)
	if err := s.q.QueryRow(ctx, sql, value).Scan(dest...); err != nil {
		return nil, mapReadErr(err)
	}
	return a, nil
}

// ---- requests ----

const requestColumns = "id, buyer_id, title, category, description, budget, deadline, status, created_at, updated_at"

func (s *Store) CreateRequest(ctx context.Context, r *models.Request) error {
	_, err := s.q.Exec(ctx, `INSERT INTO requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.BuyerID, r.Title, string(r.Category), r.Description, r.Budget, r.Deadline, string(r.Status), r.CreatedAt, r.UpdatedAt)
	return mapWriteErr(err)
}

func (s *Store) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	row := s.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	r, err := scanRequest(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return r, nil
}

func (s *Store) ListRequestsByBuyer(ctx context.Context, buyerID string) ([]*models.Request, error) {
	return collect(ctx, s.q, scanRequest,
		`SELECT `+requestColumns+` FROM requests WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC`, buyerID)
}

func (s *Store) ListRequests(ctx context.Context) ([]*models.Request, error) {
	return collect(ctx, s.q, scanRequest,
		`SELECT `+requestColumns+` FROM requests ORDER BY created_at DESC, id DESC`)
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id string, from []models.RequestStatus, to models.RequestStatus, now time.Time) error {
	fromStr := make([]string, len(from))
	for i, st := range from {
		fromStr[i] = string(st)
	}
	tag, err := s.q.Exec(ctx,
		`UPDATE requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = ANY($4)`,
		string(to), now, id, fromStr)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	return s.casResult(ctx, tag, "requests", id)
}

// ---- proposals ----

const proposalColumns = "id, request_id, buyer_id, agent_id, message, status, created_at, updated_at"

func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	_, err := s.q.Exec(ctx, `INSERT INTO proposals (`+proposalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.RequestID, p.BuyerID, p.AgentID, p.Message, string(p.Status), p.CreatedAt, p.UpdatedAt)
	return mapWriteErr(err)
}

func (s *Store) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	p, err := scanProposal(s.q.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return p, nil
}

func (s *Store) ListProposalsByBuyer(ctx context.Context, buyerID string) ([]*models.Proposal, error) {
	return collect(ctx, s.q, scanProposal,
		`SELECT `+proposalColumns+` FROM proposals WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC`, buyerID)
}

func (s *Store) ListProposalsByAgent(ctx context.Context, agentID string) ([]*models.Proposal, error) {
	return collect(ctx, s.q, scanProposal,
		`SELECT `+proposalColumns+` FROM proposals WHERE agent_id = $1 ORDER BY created_at DESC, id DESC`, agentID)
}

func (s *Store) ListProposalsByStatus(ctx context.Context, status models.ProposalStatus) ([]*models.Proposal, error) {
	return collect(ctx, s.q, scanProposal,
		`SELECT `+proposalColumns+` FROM proposals WHERE status = $1 ORDER BY created_at DESC, id DESC`, string(status))
}

func (s *Store) UpdateProposalStatus(ctx context.Context, id string, from, to models.ProposalStatus, now time.Time) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE proposals SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), now, id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update proposal status: %w", err)
	}
	return s.casResult(ctx, tag, "proposals", id)
}

// ---- projects ----

const projectColumns = "id, proposal_id, request_id, buyer_id, agent_id, title, category, description, budget, deadline, status, created_at, updated_at"

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	_, err := s.q.Exec(ctx, `INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.ProposalID, p.RequestID, p.BuyerID, p.AgentID, p.Title, string(p.Category), p.Description,
		p.Budget, p.Deadline, string(p.Status), p.CreatedAt, p.UpdatedAt)
	return mapWriteErr(err)
}

func (s *Store) GetProjectByProposal(ctx context.Context, proposalID string) (*models.Project, error) {
	p, err := scanProject(s.q.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE proposal_id = $1`, proposalID))
	if err != nil {
		return nil, mapReadErr(err)
	}
	return p, nil
}

func (s *Store) ListProjectsByBuyer(ctx context.Context, buyerID string) ([]*models.Project, error) {
	return collect(ctx, s.q, scanProject,
		`SELECT `+projectColumns+` FROM projects WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC`, buyerID)
}

func (s *Store) ListProjectsByAgent(ctx context.Context, agentID string) ([]*models.Project, error) {
	return collect(ctx, s.q, scanProject,
		`SELECT `+projectColumns+` FROM projects WHERE agent_id = $1 ORDER BY created_at DESC, id DESC`, agentID)
}

// ---- helpers ----

func (s *Store) casResult(ctx context.Context, tag pgconn.CommandTag, table, id string) error {
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := s.q.QueryRow(ctx, fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table), id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check %s: %w", table, err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var r models.Request
	var category, status string
	if err := row.Scan(&r.ID, &r.BuyerID, &r.Title, &category, &r.Description, &r.Budget, &r.Deadline, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Category, r.Status = models.Category(category), models.RequestStatus(status)
	return &r, nil
}

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	var status string
	if err := row.Scan(&p.ID, &p.RequestID, &p.BuyerID, &p.AgentID, &p.Message, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.ProposalStatus(status)
	return &p, nil
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	var category, status string
	if err := row.Scan(&p.ID, &p.ProposalID, &p.RequestID, &p.BuyerID, &p.AgentID, &p.Title, &category, &p.Description,
		&p.Budget, &p.Deadline, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Category, p.Status = models.Category(category), models.ProjectStatus(status)
	return &p, nil
}

func collect[T any](ctx context.Context, q querier, scan func(pgx.Row) (*T, error), sql string, args ...any) ([]*T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}

func mapReadErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrDuplicate
	}
	return err
}
