package repository

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	auth "github.com/goliatone/go-report-auth"
)

const userCollection = "users"

// userDocument is the stored shape of a user. Field names match the
// documents already present in the collection. New users are keyed by the
// uuid string, older ones by an ObjectId.
type userDocument struct {
	ID        any       `bson:"_id"`
	FirstName string    `bson:"firstName"`
	LastName  string    `bson:"lastName"`
	Phone     string    `bson:"phone"`
	CityState string    `bson:"cityState"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	UserType  string    `bson:"userType"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// legacyIDPrefix marks a uuid that carries an ObjectId in its last twelve
// bytes.
var legacyIDPrefix = []byte{0x00, 0x0b, 0x1d, 0x00}

// UserIDFromObjectID maps an ObjectId key to the uuid used by the rest of
// the service. The mapping is reversible, see ObjectIDFromUserID.
func UserIDFromObjectID(oid bson.ObjectID) uuid.UUID {
	var id uuid.UUID
	copy(id[:len(legacyIDPrefix)], legacyIDPrefix)
	copy(id[len(legacyIDPrefix):], oid[:])
	return id
}

// ObjectIDFromUserID returns the ObjectId wrapped by UserIDFromObjectID
func ObjectIDFromUserID(id uuid.UUID) (bson.ObjectID, bool) {
	var oid bson.ObjectID
	if !bytes.Equal(id[:len(legacyIDPrefix)], legacyIDPrefix) {
		return oid, false
	}
	copy(oid[:], id[len(legacyIDPrefix):])
	return oid, true
}

func documentID(id uuid.UUID) any {
	if oid, ok := ObjectIDFromUserID(id); ok {
		return oid
	}
	return id.String()
}

// idFilter matches a user by id. A uuid that looks like a wrapped ObjectId
// also matches the plain string key in case a random id hit the prefix.
func idFilter(id uuid.UUID) bson.M {
	if oid, ok := ObjectIDFromUserID(id); ok {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id.String()}}}
	}
	return bson.M{"_id": id.String()}
}

func toDocument(u *auth.User) userDocument {
	doc := userDocument{
		ID:        documentID(u.ID),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		CityState: u.CityState,
		Email:     u.Email,
		Password:  u.PasswordHash,
		UserType:  u.UserType,
	}
	if u.CreatedAt != nil {
		doc.CreatedAt = *u.CreatedAt
	}
	if u.UpdatedAt != nil {
		doc.UpdatedAt = *u.UpdatedAt
	}
	return doc
}

func (d userDocument) userID() (uuid.UUID, error) {
	switch id := d.ID.(type) {
	case bson.ObjectID:
		return UserIDFromObjectID(id), nil
	case string:
		return uuid.Parse(id)
	default:
		return uuid.Nil, errors.New(fmt.Sprintf("unsupported _id type %T", d.ID), errors.CategoryInternal)
	}
}

func (d userDocument) toUser() (*auth.User, error) {
	id, err := d.userID()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "stored user has an invalid id").
			WithMetadata(map[string]any{"id": fmt.Sprint(d.ID)})
	}

	user := &auth.User{
		ID:           id,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Phone:        d.Phone,
		CityState:    d.CityState,
		Email:        d.Email,
		PasswordHash: d.Password,
		UserType:     d.UserType,
	}
	if !d.CreatedAt.IsZero() {
		created := d.CreatedAt
		user.CreatedAt = &created
	}
	if !d.UpdatedAt.IsZero() {
		updated := d.UpdatedAt
		user.UpdatedAt = &updated
	}
	return user, nil
}

// MongoUsers stores users in a mongo collection
type MongoUsers struct {
	collection *mongo.Collection
	logger     auth.Logger
}

var _ auth.UserStore = (*MongoUsers)(nil)

// NewMongoUsers returns the store and makes sure the unique email index
// exists.
func NewMongoUsers(ctx context.Context, db *mongo.Database, logger auth.Logger) (*MongoUsers, error) {
	_, logger = auth.ResolveLogger("repository:users", nil, logger)

	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Error("failed to create user indexes", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user indexes")
	}

	return &MongoUsers{collection: collection, logger: logger}, nil
}

func (r *MongoUsers) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	auth.PrepareUserDefaults(user)

	if _, err := r.collection.InsertOne(ctx, toDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, auth.NewEmailExistsError(err, user.Email)
		}
		return nil, err
	}

	return user, nil
}

func (r *MongoUsers) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return r.findOne(ctx, idFilter(id), map[string]any{"id": id.String()})
}

func (r *MongoUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	email = auth.NormalizeEmail(email)
	return r.findOne(ctx, bson.M{"email": email}, map[string]any{"email": email})
}

// UpdateProfile sets the editable fields and returns the stored document
// as it is after the update.
func (r *MongoUsers) UpdateProfile(ctx context.Context, id uuid.UUID, edit auth.ProfileEdit) (*auth.User, error) {
	update := bson.M{"$set": bson.M{
		"firstName": edit.FirstName,
		"lastName":  edit.LastName,
		"phone":     edit.Phone,
		"cityState": edit.CityState,
		"updatedAt": time.Now(),
	}}

	result := r.collection.FindOneAndUpdate(
		ctx,
		idFilter(id),
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	return decodeUser(result, map[string]any{"id": id.String()})
}

func (r *MongoUsers) findOne(ctx context.Context, filter bson.M, meta map[string]any) (*auth.User, error) {
	return decodeUser(r.collection.FindOne(ctx, filter), meta)
}

func decodeUser(result *mongo.SingleResult, meta map[string]any) (*auth.User, error) {
	var doc userDocument
	if err := result.Decode(&doc); err != nil {
		return nil, mapFindError(err, meta)
	}
	return doc.toUser()
}

func mapFindError(err error, meta map[string]any) error {
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return auth.NewUserNotFoundError(meta)
	}
	return err
}
