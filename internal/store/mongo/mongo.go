// Package mongo is the MongoDB store driver. Collections: users, agents, sellers,
// requests, proposals, projects.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
	"github.com/kartikbazzad/bunbase/marketplace/internal/store"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

const (
	collRequests  = "requests"
	collProposals = "proposals"
	collProjects  = "projects"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
	// Transactions requires a replica set. When false, RunInTx runs fn without a session.
	Transactions bool `mapstructure:"transactions"`
}

// Store is a store.Store backed by MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	txns   bool
}

var _ store.Store = (*Store)(nil)

// Open connects, pings and ensures the uniqueness indexes exist.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(cfg.Database), txns: cfg.Transactions}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	for _, role := range models.Roles {
		_, err := s.db.Collection(role.Collection()).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: unique,
		})
		if err != nil {
			return fmt.Errorf("failed to create email index on %s: %w", role.Collection(), err)
		}
	}
	if _, err := s.db.Collection(collProjects).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "proposalId", Value: 1}},
		Options: unique,
	}); err != nil {
		return fmt.Errorf("failed to create proposalId index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ---- actors ----

func (s *Store) CreateActor(ctx context.Context, a *models.Actor) error {
	_, err := s.db.Collection(a.Role.Collection()).InsertOne(ctx, a)
	return mapWriteErr(err)
}

func (s *Store) GetActor(ctx context.Context, role models.Role, id string) (*models.Actor, error) {
	return s.findActor(ctx, role, bson.M{"_id": id})
}

func (s *Store) GetActorByEmail(ctx context.Context, role models.Role, email string) (*models.Actor, error) {
	return s.findActor(ctx, role, bson.M{"email": email})
}

func (s *Store) findActor(ctx context.Context, role models.Role, filter bson.M) (*models.Actor, error) {
	var a models.Actor
	if err := s.db.Collection(role.Collection()).FindOne(ctx, filter).Decode(&a); err != nil {
		return nil, mapReadErr(err)
	}
	// Documents written by other tools may predate the role field.
	a.Role = role
	return &a, nil
}

// ---- requests ----

func (s *Store) CreateRequest(ctx context.Context, r *models.Request) error {
	_, err := s.db.Collection(collRequests).InsertOne(ctx, r)
	return mapWriteErr(err)
}

func (s *Store) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	var r models.Request
	if err := s.db.Collection(collRequests).FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, mapReadErr(err)
	}
	return &r, nil
}

func (s *Store) ListRequestsByBuyer(ctx context.Context, buyerID string) ([]*models.Request, error) {
	return findAll[models.Request](ctx, s.db.Collection(collRequests), bson.M{"buyerId": buyerID})
}

func (s *Store) ListRequests(ctx context.Context) ([]*models.Request, error) {
	return findAll[models.Request](ctx, s.db.Collection(collRequests), bson.M{})
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id string, from []models.RequestStatus, to models.RequestStatus, now time.Time) error {
	return casStatus(ctx, s.db.Collection(collRequests), id, bson.M{"$in": from}, to, now)
}

// ---- proposals ----

func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	_, err := s.db.Collection(collProposals).InsertOne(ctx, p)
	return mapWriteErr(err)
}

func (s *Store) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	var p models.Proposal
	if err := s.db.Collection(collProposals).FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mapReadErr(err)
	}
	return &p, nil
}

func (s *Store) ListProposalsByBuyer(ctx context.Context, buyerID string) ([]*models.Proposal, error) {
	return findAll[models.Proposal](ctx, s.db.Collection(collProposals), bson.M{"buyerId": buyerID})
}

func (s *Store) ListProposalsByAgent(ctx context.Context, agentID string) ([]*models.Proposal, error) {
	return findAll[models.Proposal](ctx, s.db.Collection(collProposals), bson.M{"agentId": agentID})
}

func (s *Store) ListProposalsByStatus(ctx context.Context, status models.ProposalStatus) ([]*models.Proposal, error) {
	return findAll[models.Proposal](ctx, s.db.Collection(collProposals), bson.M{"status": status})
}

func (s *Store) UpdateProposalStatus(ctx context.Context, id string, from, to models.ProposalStatus, now time.Time) error {
	return casStatus(ctx, s.db.Collection(collProposals), id, from, to, now)
}

// ---- projects ----

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	_, err := s.db.Collection(collProjects).InsertOne(ctx, p)
	return mapWriteErr(err)
}

func (s *Store) GetProjectByProposal(ctx context.Context, proposalID string) (*models.Project, error) {
	var p models.Project
	if err := s.db.Collection(collProjects).FindOne(ctx, bson.M{"proposalId": proposalID}).Decode(&p); err != nil {
		return nil, mapReadErr(err)
	}
	return &p, nil
}

func (s *Store) ListProjectsByBuyer(ctx context.Context, buyerID string) ([]*models.Project, error) {
	return findAll[models.Project](ctx, s.db.Collection(collProjects), bson.M{"buyerId": buyerID})
}

func (s *Store) ListProjectsByAgent(ctx context.Context, agentID string) ([]*models.Project, error) {
	return findAll[models.Project](ctx, s.db.Collection(collProjects), bson.M{"agentId": agentID})
}

// ---- transactions ----

// RunInTx runs fn inside a multi-document transaction when transactions are enabled.
// Without them, fn runs directly and callers rely on ordered compare-and-set writes.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if !s.txns {
		return fn(ctx, s)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

// Atomic reports whether multi-document transactions are enabled.
func (s *Store) Atomic() bool { return s.txns }

// ---- helpers ----

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) ([]*T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cur.Close(ctx)

	out := make([]*T, 0)
	for cur.Next(ctx) {
		var doc T
		if err := cur.Decode(&doc); err != nil {
			// One malformed document should not hide the rest of the collection.
			logger.Get().Warn("Skipping undecodable document", "collection", coll.Name(), "error", err)
			continue
		}
		out = append(out, &doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", coll.Name(), err)
	}
	return out, nil
}

func casStatus(ctx context.Context, coll *mongo.Collection, id string, from, to any, now time.Time) error {
	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to update %s status: %w", coll.Name(), err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", coll.Name(), err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func mapReadErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}
