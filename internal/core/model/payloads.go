package model

// CreateUserArgs contain the arguments of the CreateUser method.
type CreateUserArgs struct {
	// Username is the user display name.
	Username string

	// Age is the user age.
	Age int

	// Hobbies are the user hobby tags. Duplicates are collapsed on write.
	Hobbies []string
}

// CreateUserResponse contains the response of the CreateUser method.
type CreateUserResponse struct {
	// User is the newly created user, with no friends and a zero score.
	User User
}

// UpdateUserArgs contain the arguments of the UpdateUser method.
type UpdateUserArgs struct {
	// ID is the id of the user to be updated.
	ID string

	// Username is the new display name.
	Username string

	// Age is the new age.
	Age int

	// Hobbies are the new hobby tags.
	Hobbies []string
}

// UpdateUserResponse contains the response of the UpdateUser method.
type UpdateUserResponse struct {
	// User is the updated user, enriched with friends and score.
	User User
}

// ListUsersResponse contains all users of the graph.
type ListUsersResponse struct {
	// Users are all users, enriched with friends and scores, in the store's
	// natural enumeration order.
	Users []User
}

// LinkUsersArgs contain the two endpoints of a link or unlink operation.
// Order does not matter: the pair is canonicalized before use.
type LinkUsersArgs struct {
	// UserID1 is one endpoint.
	UserID1 string

	// UserID2 is the other endpoint.
	UserID2 string
}

// LinkUsersResponse contains the response of the LinkUsers method.
type LinkUsersResponse struct {
	// Friendship is the canonical edge between the two users. When the edge
	// already existed it is returned unchanged.
	Friendship Friendship

	// Created reports whether the edge was created by this call.
	Created bool
}
