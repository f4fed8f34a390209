package model

import "time"

// User represents a node in the social graph.
type User struct {
	// ID unique identifier of the user. Lowercase UUID string, immutable after creation.
	ID string `json:"id"`

	// Username is the display name. Non-empty after trimming, at most 50 runes.
	Username string `json:"username"`

	// Age of the user, in [1,150].
	Age int `json:"age"`

	// Hobbies is a deduplicated set of hobby tags. Insertion order is
	// preserved for display but carries no meaning.
	Hobbies []string `json:"hobbies"`

	// CreatedAt is the time at which the user was created. Immutable.
	CreatedAt time.Time `json:"createdAt"`

	// Friends are the ids of the user's neighbors. Derived on read, never stored.
	Friends []string `json:"friends"`

	// PopularityScore is derived from the current edge set and hobby sets.
	// Recomputed on every read, never stored.
	PopularityScore float64 `json:"popularityScore"`
}

// Friendship is one undirected edge between two distinct users.
// The pair is canonical: UserID1 is always the byte-wise smaller id, so an
// unordered pair has exactly one representation.
type Friendship struct {
	// ID is the sequential identity of the edge record.
	ID int64 `json:"id"`

	// UserID1 is the smaller endpoint id of the canonical pair.
	UserID1 string `json:"user_id_1"`

	// UserID2 is the larger endpoint id of the canonical pair.
	UserID2 string `json:"user_id_2"`

	// CreatedAt is the time at which the edge was created.
	CreatedAt time.Time `json:"createdAt"`
}

// GraphEdge is the read-model representation of a friendship.
type GraphEdge struct {
	// ID is a stable deterministic string: "<id1>-<id2>" in canonical order.
	ID string `json:"id"`

	// Source is the canonical smaller endpoint.
	Source string `json:"source"`

	// Target is the canonical larger endpoint.
	Target string `json:"target"`
}

// GraphSnapshot is the read-optimized projection of the whole graph.
type GraphSnapshot struct {
	// Users are all users, enriched with friends and scores.
	Users []User `json:"users"`

	// Edges are all canonical friendships.
	Edges []GraphEdge `json:"edges"`
}

// GraphEvent collects one change to the graph. It can represent the creation,
// update and deletion of a user, or the creation and deletion of an edge.
type GraphEvent struct {
	// ID is the event id.
	ID string `json:"id"`

	// Before is the user state before the event. Nil for user-creations and edge events.
	Before *User `json:"before,omitempty"`

	// After is the user state after the event. Nil for user-deletions and edge events.
	After *User `json:"after,omitempty"`

	// EdgeBefore is the edge state before the event. Non-nil only for unlinks.
	EdgeBefore *Friendship `json:"edge_before,omitempty"`

	// EdgeAfter is the edge state after the event. Non-nil only for links.
	EdgeAfter *Friendship `json:"edge_after,omitempty"`
}
