package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/popgraph/popgraph/internal/core/model"
)

// PostgresDB is a postgres adapter for persistence.
type PostgresDB struct {
	db      *pg.DB
	nowFunc func() time.Time
}

// PostgresDBArgs are the mandatory arguments for the creation of a PostgresDB
type PostgresDBArgs struct {
	// DB is a postgres database handle
	DB *pg.DB
}

// PostgresDBOptArgs are the optional arguments for building a PostgresDB
type PostgresDBOptArgs = func(*PostgresDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) PostgresDBOptArgs {
	return func(p *PostgresDB) {
		p.nowFunc = nowFunc
	}
}

// NewPostgresDB creates a new PostgresDB.
func NewPostgresDB(args PostgresDBArgs, optArgs ...PostgresDBOptArgs) (*PostgresDB, error) {
	pgDB := &PostgresDB{db: args.DB, nowFunc: func() time.Time { return time.Now().UTC() }}
	for _, opt := range optArgs {
		opt(pgDB)
	}
	return pgDB, nil
}

// SaveUser will save the user in the database.
func (p *PostgresDB) SaveUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to save method")
	}

	dbUser := p.toDBUser(user)
	if _, err := p.db.ModelContext(ctx, dbUser).Insert(); err != nil {
		return err
	}

	user.CreatedAt = dbUser.CreatedAt
	return nil
}

// GetUser returns the bare user record. It returns model.ErrNotFound if the
// id does not correspond to an existing user.
func (p *PostgresDB) GetUser(ctx context.Context, id string) (*model.User, error) {
	dbUser := new(userDB)
	err := p.db.ModelContext(ctx, dbUser).Where("id = ?", id).Select()
	if err == pg.ErrNoRows {
		return nil, model.ErrNotFound
	} else if err != nil {
		return nil, err
	}
	user := translateDBToUser(*dbUser)
	return &user, nil
}

// ListUsers lists all users in insertion order.
func (p *PostgresDB) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []userDB
	if err := p.db.ModelContext(ctx, &users).Order("created_at ASC").Order("id ASC").Select(); err != nil && err != pg.ErrNoRows {
		return nil, err
	}
	return translateDBToUsers(users), nil
}

// UpdateUser will update the mutable fields of a user. It returns
// model.ErrNotFound if the input user does not exist.
func (p *PostgresDB) UpdateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to update method")
	}

	conn := p.db.Conn()
	defer conn.Close()

	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing := new(userDB)
	err = tx.ModelContext(ctx, existing).Where("id = ?", user.ID).Select()
	if err != nil && err != pg.ErrNoRows {
		return err
	} else if err == pg.ErrNoRows {
		return model.ErrNotFound
	}

	existing.Username = user.Username
	existing.Age = user.Age
	existing.Hobbies = user.Hobbies
	if _, err := tx.ModelContext(ctx, existing).WherePK().Update(); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	user.CreatedAt = existing.CreatedAt
	return nil
}

// DeleteUser will delete a user from the database. The friendship guard and
// the delete run in one transaction so the count cannot go stale.
func (p *PostgresDB) DeleteUser(ctx context.Context, id string) error {
	conn := p.db.Conn()
	defer conn.Close()

	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	count, err := tx.ModelContext(ctx, (*friendshipDB)(nil)).
		Where("user_id_1 = ?", id).
		WhereOr("user_id_2 = ?", id).
		Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return model.ErrHasFriendships
	}

	res, err := tx.ModelContext(ctx, &userDB{ID: id}).WherePK().Delete()
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return tx.Commit()
}

// SaveFriendship inserts the canonical edge, or fills in the existing record
// when the pair is already linked. The lookup and insert run in one
// transaction; the UNIQUE(user_id_1, user_id_2) constraint backstops races.
func (p *PostgresDB) SaveFriendship(ctx context.Context, friendship *model.Friendship) (bool, error) {
	if friendship == nil {
		return false, errors.New("nil friendship passed to save method")
	}

	conn := p.db.Conn()
	defer conn.Close()

	tx, err := conn.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	existing := new(friendshipDB)
	err = tx.ModelContext(ctx, existing).
		Where("user_id_1 = ?", friendship.UserID1).
		Where("user_id_2 = ?", friendship.UserID2).
		Select()
	if err != nil && err != pg.ErrNoRows {
		return false, err
	} else if err == nil {
		*friendship = translateDBToFriendship(*existing)
		return false, tx.Commit()
	}

	dbFriendship := &friendshipDB{
		UserID1:   friendship.UserID1,
		UserID2:   friendship.UserID2,
		CreatedAt: friendship.CreatedAt,
	}
	if dbFriendship.CreatedAt.IsZero() {
		dbFriendship.CreatedAt = p.nowFunc()
	}
	if _, err := tx.ModelContext(ctx, dbFriendship).Insert(); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	friendship.ID = dbFriendship.ID
	friendship.CreatedAt = dbFriendship.CreatedAt
	return true, nil
}

// DeleteFriendship removes the canonical edge and reports whether anything
// was removed.
func (p *PostgresDB) DeleteFriendship(ctx context.Context, userID1, userID2 string) (bool, error) {
	res, err := p.db.ModelContext(ctx, (*friendshipDB)(nil)).
		Where("user_id_1 = ?", userID1).
		Where("user_id_2 = ?", userID2).
		Delete()
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ListFriendships lists all edges in insertion order.
func (p *PostgresDB) ListFriendships(ctx context.Context) ([]model.Friendship, error) {
	var friendships []friendshipDB
	if err := p.db.ModelContext(ctx, &friendships).Order("id ASC").Select(); err != nil && err != pg.ErrNoRows {
		return nil, err
	}
	ret := make([]model.Friendship, len(friendships))
	for i, f := range friendships {
		ret[i] = translateDBToFriendship(f)
	}
	return ret, nil
}

// FriendIDs returns the distinct neighbor ids of the given user.
func (p *PostgresDB) FriendIDs(ctx context.Context, id string) ([]string, error) {
	var friendships []friendshipDB
	err := p.db.ModelContext(ctx, &friendships).
		Where("user_id_1 = ?", id).
		WhereOr("user_id_2 = ?", id).
		Order("id ASC").
		Select()
	if err != nil && err != pg.ErrNoRows {
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

func (p *PostgresDB) toDBUser(user *model.User) *userDB {
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
		dbUser.CreatedAt = p.nowFunc()
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
	tableName struct{} `pg:"popgraph.users"`

	// ID unique identifier of the user.
	ID string `pg:"id,pk"`

	// Username is the user display name.
	Username string `pg:"username,use_zero"`

	// Age of the user.
	Age int `pg:"age,use_zero"`

	// Hobbies are the user hobby tags.
	Hobbies []string `pg:"hobbies,array"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `pg:"created_at"`
}

type friendshipDB struct {
	tableName struct{} `pg:"popgraph.friendships"`

	// ID is the sequential identity of the edge record.
	ID int64 `pg:"id,pk"`

	// UserID1 is the smaller endpoint id of the canonical pair.
	UserID1 string `pg:"user_id_1"`

	// UserID2 is the larger endpoint id of the canonical pair.
	UserID2 string `pg:"user_id_2"`

	// CreatedAt is the time at which the edge was created.
	CreatedAt time.Time `pg:"created_at"`
}
