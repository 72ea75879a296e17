package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	auth "github.com/goliatone/go-report-auth"
)

func testUser() *auth.User {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	return &auth.User{
		ID:           uuid.New(),
		FirstName:    "Ana",
		LastName:     "Silva",
		Phone:        "+5511999999999",
		CityState:    "São Paulo/SP",
		Email:        "ana@example.com",
		PasswordHash: "$2a$10$hash",
		UserType:     auth.UserTypeFree,
		CreatedAt:    &created,
		UpdatedAt:    &updated,
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	user := testUser()

	doc := toDocument(user)
	assert.Equal(t, user.ID.String(), doc.ID)
	assert.Equal(t, user.PasswordHash, doc.Password)
	assert.Equal(t, "Free", doc.UserType)

	back, err := doc.toUser()
	require.NoError(t, err)
	assert.Equal(t, user.ID, back.ID)
	assert.Equal(t, user.FirstName, back.FirstName)
	assert.Equal(t, user.LastName, back.LastName)
	assert.Equal(t, user.Phone, back.Phone)
	assert.Equal(t, user.CityState, back.CityState)
	assert.Equal(t, user.Email, back.Email)
	assert.Equal(t, user.PasswordHash, back.PasswordHash)
	assert.Equal(t, user.UserType, back.UserType)
	require.NotNil(t, back.CreatedAt)
	assert.True(t, user.CreatedAt.Equal(*back.CreatedAt))
}

func TestDocument_ZeroTimestampsStayNil(t *testing.T) {
	doc := userDocument{ID: uuid.NewString(), Email: "a@b.c"}

	user, err := doc.toUser()
	require.NoError(t, err)
	assert.Nil(t, user.CreatedAt)
	assert.Nil(t, user.UpdatedAt)
}

func TestDocument_InvalidID(t *testing.T) {
	for name, id := range map[string]any{
		"hex string": "507f1f77bcf86cd799439011",
		"number":     int32(7),
		"missing":    nil,
	} {
		t.Run(name, func(t *testing.T) {
			user, err := userDocument{ID: id}.toUser()
			assert.Error(t, err)
			assert.Nil(t, user)
		})
	}
}

func TestDocument_ObjectIDKey(t *testing.T) {
	oid, err := bson.ObjectIDFromHex("507f1f77bcf86cd799439011")
	require.NoError(t, err)

	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: oid},
		{Key: "firstName", Value: "Ana"},
		{Key: "email", Value: "ana@example.com"},
		{Key: "password", Value: "$2a$10$hash"},
		{Key: "userType", Value: "Premium"},
	})
	require.NoError(t, err)

	var doc userDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))

	user, err := doc.toUser()
	require.NoError(t, err)
	assert.Equal(t, UserIDFromObjectID(oid), user.ID)
	assert.Equal(t, "Premium", user.UserType)

	back, ok := ObjectIDFromUserID(user.ID)
	require.True(t, ok)
	assert.Equal(t, oid, back)

	// writing the user back keeps the ObjectId key
	assert.Equal(t, oid, toDocument(user).ID)
}

func TestIDFilter(t *testing.T) {
	id := uuid.New()
	if _, ok := ObjectIDFromUserID(id); !ok {
		assert.Equal(t, bson.M{"_id": id.String()}, idFilter(id))
	}

	oid := bson.NewObjectID()
	legacy := UserIDFromObjectID(oid)
	assert.Equal(t, bson.M{"_id": bson.M{"$in": bson.A{oid, legacy.String()}}}, idFilter(legacy))
}

func TestDecodeUser_ObjectIDKey(t *testing.T) {
	oid := bson.NewObjectID()
	result := mongo.NewSingleResultFromDocument(bson.D{
		{Key: "_id", Value: oid},
		{Key: "email", Value: "old@example.com"},
	}, nil, nil)

	got, err := decodeUser(result, nil)
	require.NoError(t, err)
	assert.Equal(t, UserIDFromObjectID(oid), got.ID)
	assert.Equal(t, "old@example.com", got.Email)
}

func TestDocument_BSONFieldNames(t *testing.T) {
	raw, err := bson.Marshal(toDocument(testUser()))
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))

	for _, key := range []string{"_id", "firstName", "lastName", "phone", "cityState", "email", "password", "userType"} {
		assert.Contains(t, m, key)
	}
}

func TestDecodeUser(t *testing.T) {
	user := testUser()

	got, err := decodeUser(mongo.NewSingleResultFromDocument(toDocument(user), nil, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Ana", got.FirstName)
}

func TestDecodeUser_NotFound(t *testing.T) {
	result := mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)

	got, err := decodeUser(result, map[string]any{"email": "missing@example.com"})
	assert.Nil(t, got)
	assert.True(t, auth.IsUserNotFound(err))
}

func TestMapFindError_PassesOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")

	err := mapFindError(boom, nil)
	assert.Equal(t, boom, err)
	assert.False(t, auth.IsUserNotFound(err))
}

func TestDuplicateKeyDetection(t *testing.T) {
	dup := mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
	}
	require.True(t, mongo.IsDuplicateKeyError(dup))

	err := auth.NewEmailExistsError(dup, "ana@example.com")
	assert.True(t, auth.IsEmailAlreadyExists(err))
}

func TestManager_Validate(t *testing.T) {
	m := &Manager{}
	assert.Error(t, m.Validate())
	assert.Panics(t, m.MustValidate)
}
