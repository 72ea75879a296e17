package repository

import (
	"context"
	"errors"
	"log"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	auth "github.com/goliatone/go-report-auth"
)

// PingTimeout bounds the connection check done at startup
var PingTimeout = 10 * time.Second

// Manager owns the mongo client and the stores built on it
type Manager struct {
	client *mongo.Client
	db     *mongo.Database
	users  *MongoUsers
}

// Connect opens the client, checks the server answers and prepares the
// user store.
func Connect(ctx context.Context, uri, database string, logger auth.Logger) (*Manager, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to create mongo client")
	}

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to reach mongo").
			WithMetadata(map[string]any{"database": database})
	}

	db := client.Database(database)

	users, err := NewMongoUsers(ctx, db, logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Manager{
		client: client,
		db:     db,
		users:  users,
	}, nil
}

func (m *Manager) Validate() error {
	if m.client == nil {
		return errors.New("repository mongo client should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) Users() auth.UserStore {
	return m.users
}

// Close disconnects the client
func (m *Manager) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
