package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/popgraph/popgraph/internal/core/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB is a mongo adapter for persistence.
//
// Friendship pair uniqueness is enforced by the unique compound index
// installed by EnsureIndexes. The friendship-count-then-delete guard in
// DeleteUser relies on the single-writer model of the graph store.
type MongoDB struct {
	userCollection       *mongo.Collection
	friendshipCollection *mongo.Collection
	counterCollection    *mongo.Collection
	nowFunc              func() time.Time
}

// MongoDBArgs are the mandatory arguments for the creation of a MongoDB
type MongoDBArgs struct {
	// UserCollection holds the user documents.
	UserCollection *mongo.Collection

	// FriendshipCollection holds the canonical edge documents.
	FriendshipCollection *mongo.Collection

	// CounterCollection holds the sequence counter for edge ids.
	CounterCollection *mongo.Collection
}

// MongoDBOptArgs are the optional arguments for building a MongoDB
type MongoDBOptArgs = func(*MongoDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) MongoDBOptArgs {
	return func(m *MongoDB) {
		m.nowFunc = nowFunc
	}
}

// NewMongoDB creates a new MongoDB.
func NewMongoDB(args MongoDBArgs, optArgs ...MongoDBOptArgs) (*MongoDB, error) {
	m := &MongoDB{
		userCollection:       args.UserCollection,
		friendshipCollection: args.FriendshipCollection,
		counterCollection:    args.CounterCollection,
		nowFunc:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range optArgs {
		opt(m)
	}
	return m, nil
}

// EnsureIndexes installs the unique compound index guaranteeing at most one
// edge per canonical pair.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.friendshipCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id_1", Value: 1}, {Key: "user_id_2", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// SaveUser will save the user in the database.
func (m *MongoDB) SaveUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to save method")
	}

	dbUser := m.toDBUser(user)
	if _, err := m.userCollection.InsertOne(ctx, dbUser); err != nil {
		return err
	}

	user.CreatedAt = dbUser.CreatedAt
	return nil
}

// GetUser returns the bare user record. It returns model.ErrNotFound if the
// id does not correspond to an existing user.
func (m *MongoDB) GetUser(ctx context.Context, id string) (*model.User, error) {
	dbUser := new(userDB)
	err := m.userCollection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(dbUser)
	if err == mongo.ErrNoDocuments {
		return nil, model.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	user := translateDBToUser(*dbUser)
	return &user, nil
}

// ListUsers lists all users in insertion order.
func (m *MongoDB) ListUsers(ctx context.Context) ([]model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.userCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var users []userDB
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return translateDBToUsers(users), nil
}

// UpdateUser will update the mutable fields of a user. It returns
// model.ErrNotFound if the input user does not exist.
func (m *MongoDB) UpdateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to update method")
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "username", Value: user.Username},
		{Key: "age", Value: user.Age},
		{Key: "hobbies", Value: user.Hobbies},
	}}}
	res, err := m.userCollection.UpdateByID(ctx, user.ID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return model.ErrNotFound
	}

	existing := new(userDB)
	if err := m.userCollection.FindOne(ctx, bson.D{{Key: "_id", Value: user.ID}}).Decode(existing); err != nil {
		return err
	}
	user.CreatedAt = existing.CreatedAt
	return nil
}

// DeleteUser will delete a user from the database, unless it still has edges.
func (m *MongoDB) DeleteUser(ctx context.Context, id string) error {
	count, err := m.friendshipCollection.CountDocuments(ctx, pairMatch(id))
	if err != nil {
		return err
	}
	if count > 0 {
		return model.ErrHasFriendships
	}

	res, err := m.userCollection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

// SaveFriendship inserts the canonical edge, or fills in the existing record
// when the pair is already linked.
func (m *MongoDB) SaveFriendship(ctx context.Context, friendship *model.Friendship) (bool, error) {
	if friendship == nil {
		return false, errors.New("nil friendship passed to save method")
	}

	filter := bson.D{
		{Key: "user_id_1", Value: friendship.UserID1},
		{Key: "user_id_2", Value: friendship.UserID2},
	}
	existing := new(friendshipDB)
	err := m.friendshipCollection.FindOne(ctx, filter).Decode(existing)
	if err == nil {
		*friendship = translateDBToFriendship(*existing)
		return false, nil
	} else if err != mongo.ErrNoDocuments {
		return false, err
	}

	id, err := m.nextEdgeID(ctx)
	if err != nil {
		return false, err
	}

	dbFriendship := &friendshipDB{
		ID:        id,
		UserID1:   friendship.UserID1,
		UserID2:   friendship.UserID2,
		CreatedAt: friendship.CreatedAt,
	}
	if dbFriendship.CreatedAt.IsZero() {
		dbFriendship.CreatedAt = m.nowFunc()
	}
	if _, err := m.friendshipCollection.InsertOne(ctx, dbFriendship); err != nil {
		return false, err
	}

	friendship.ID = dbFriendship.ID
	friendship.CreatedAt = dbFriendship.CreatedAt
	return true, nil
}

// DeleteFriendship removes the canonical edge and reports whether anything
// was removed.
func (m *MongoDB) DeleteFriendship(ctx context.Context, userID1, userID2 string) (bool, error) {
	filter := bson.D{
		{Key: "user_id_1", Value: userID1},
		{Key: "user_id_2", Value: userID2},
	}
	res, err := m.friendshipCollection.DeleteOne(ctx, filter)
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ListFriendships lists all edges in insertion order.
func (m *MongoDB) ListFriendships(ctx context.Context) ([]model.Friendship, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := m.friendshipCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var friendships []friendshipDB
	if err := cursor.All(ctx, &friendships); err != nil {
		return nil, err
	}
	ret := make([]model.Friendship, len(friendships))
	for i, f := range friendships {
		ret[i] = translateDBToFriendship(f)
	}
	return ret, nil
}

// FriendIDs returns the distinct neighbor ids of the given user.
func (m *MongoDB) FriendIDs(ctx context.Context, id string) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := m.friendshipCollection.Find(ctx, pairMatch(id), opts)
	if err != nil {
		return nil, err
	}
	var friendships []friendshipDB
	if err := cursor.All(ctx, &friendships); err != nil {
		return nil, err
	}

	friends := make([]string, 0, len(friendships))
	for _, f := range friendships {
		if f.UserID1 == id {
			friends = append(friends, f.UserID2)
		} else {
			friends = append(friends, f.UserID1)
		}
	}
	return friends, nil
}

// nextEdgeID atomically increments and returns the edge sequence counter.
func (m *MongoDB) nextEdgeID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	counter := new(counterDB)
	err := m.counterCollection.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: "friendships"}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		opts,
	).Decode(counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func pairMatch(id string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"user_id_1": id},
		bson.M{"user_id_2": id},
	}}
}

func (m *MongoDB) toDBUser(user *model.User) *userDB {
	dbUser := &userDB{
		ID:       user.ID,
		Username: user.Username,
		Age:      user.Age,
		Hobbies:  user.Hobbies,
	}
	if dbUser.Hobbies == nil {
		dbUser.Hobbies = []string{}
	}
	if !user.CreatedAt.IsZero() {
		dbUser.CreatedAt = user.CreatedAt
	} else {
		dbUser.CreatedAt = m.nowFunc()
	}
	return dbUser
}

func translateDBToUsers(dbUsers []userDB) []model.User {
	users := make([]model.User, len(dbUsers))
	for i, dbUser := range dbUsers {
		users[i] = translateDBToUser(dbUser)
	}
	return users
}

func translateDBToUser(dbUser userDB) model.User {
	return model.User{
		ID:        dbUser.ID,
		Username:  dbUser.Username,
		Age:       dbUser.Age,
		Hobbies:   dbUser.Hobbies,
		CreatedAt: dbUser.CreatedAt,
	}
}

func translateDBToFriendship(dbFriendship friendshipDB) model.Friendship {
	return model.Friendship{
		ID:        dbFriendship.ID,
		UserID1:   dbFriendship.UserID1,
		UserID2:   dbFriendship.UserID2,
		CreatedAt: dbFriendship.CreatedAt,
	}
}

type userDB struct {
	// ID unique identifier of the user.
	ID string `bson:"_id"`

	// Username is the user display name.
	Username string `bson:"username"`

	// Age of the user.
	Age int `bson:"age"`

	// Hobbies are the user hobby tags.
	Hobbies []string `bson:"hobbies"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `bson:"created_at"`
}

type friendshipDB struct {
	// ID is the sequential identity of the edge record.
	ID int64 `bson:"_id"`

	// UserID1 is the smaller endpoint id of the canonical pair.
	UserID1 string `bson:"user_id_1"`

	// UserID2 is the larger endpoint id of the canonical pair.
	UserID2 string `bson:"user_id_2"`

	// CreatedAt is the time at which the edge was created.
	CreatedAt time.Time `bson:"created_at"`
}

type counterDB struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}
