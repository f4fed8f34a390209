package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/popgraph/popgraph/internal/core/model"
	"github.com/popgraph/popgraph/internal/core/usecase"
	log "github.com/sirupsen/logrus"
)

// ServerArgs are the mandatory args to instantiate the Server.
type ServerArgs struct {
	// Usecase is the graph usecase.
	Usecase graphUsecase

	// History is the undo/redo command log of this server's session.
	History *usecase.History
}

// NewServer creates a new Server.
func NewServer(args ServerArgs) *Server {
	s := &Server{usecase: args.Usecase, history: args.History}
	s.engine = s.buildRouter()
	return s
}

// Server is the HTTP actor. It maps the graph store's logical outcomes to
// status codes: validation 400, not-found 404, friendship conflict 409.
//
// The command log itself is not goroutine-safe, so the server owns the
// serialization point: every history access goes through histMu.
type Server struct {
	engine  *gin.Engine
	usecase graphUsecase
	history *usecase.History
	histMu  sync.Mutex
}

// Handler exposes the router for mounting into an http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildRouter() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	api.GET("/users", s.listUsers)
	api.POST("/users", s.createUser)
	api.GET("/users/:id", s.getUser)
	api.PUT("/users/:id", s.updateUser)
	api.DELETE("/users/:id", s.deleteUser)
	api.POST("/users/:id/link", s.linkUsers)
	api.POST("/users/:id/unlink", s.unlinkUsers)
	api.GET("/graph", s.graph)
	api.GET("/history", s.historyState)
	api.POST("/history/undo", s.undo)
	api.POST("/history/redo", s.redo)
	return engine
}

// userRequest is the payload of create and update calls.
type userRequest struct {
	Username string   `json:"username" binding:"required"`
	Age      int      `json:"age" binding:"required,min=1,max=150"`
	Hobbies  []string `json:"hobbies"`
}

// linkRequest carries the other endpoint of a link/unlink call.
type linkRequest struct {
	TargetUserID string `json:"targetUserId" binding:"required"`
}

func (s *Server) listUsers(c *gin.Context) {
	resp, err := s.usecase.ListUsers(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": resp.Users})
}

func (s *Server) createUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.usecase.CreateUser(c.Request.Context(), model.CreateUserArgs{
		Username: req.Username,
		Age:      req.Age,
		Hobbies:  req.Hobbies,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.pushCommand(usecase.CreateUserCommand(resp.User))
	c.JSON(http.StatusCreated, gin.H{"user": resp.User})
}

func (s *Server) getUser(c *gin.Context) {
	user, err := s.usecase.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) updateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// capture the prior snapshot so the command can restore it on undo
	prev, err := s.usecase.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp, err := s.usecase.UpdateUser(c.Request.Context(), model.UpdateUserArgs{
		ID:       c.Param("id"),
		Username: req.Username,
		Age:      req.Age,
		Hobbies:  req.Hobbies,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.pushCommand(usecase.UpdateUserCommand(*prev, resp.User))
	c.JSON(http.StatusOK, gin.H{"user": resp.User})
}

func (s *Server) deleteUser(c *gin.Context) {
	prev, err := s.usecase.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.usecase.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}

	s.pushCommand(usecase.DeleteUserCommand(*prev))
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (s *Server) linkUsers(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.usecase.LinkUsers(c.Request.Context(), model.LinkUsersArgs{
		UserID1: c.Param("id"),
		UserID2: req.TargetUserID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	// an idempotent hit on an existing edge records no command: undoing it
	// would remove an edge this call did not create
	if resp.Created {
		s.pushCommand(usecase.CreateFriendshipCommand(resp.Friendship.UserID1, resp.Friendship.UserID2))
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Users linked successfully", "friendship": resp.Friendship})
}

func (s *Server) unlinkUsers(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	removed, err := s.usecase.UnlinkUsers(c.Request.Context(), model.LinkUsersArgs{
		UserID1: c.Param("id"),
		UserID2: req.TargetUserID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Friendship not found"})
		return
	}

	s.pushCommand(usecase.DeleteFriendshipCommand(c.Param("id"), req.TargetUserID))
	c.JSON(http.StatusOK, gin.H{"message": "Users unlinked successfully"})
}

func (s *Server) graph(c *gin.Context) {
	snapshot, err := s.usecase.Snapshot(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) historyState(c *gin.Context) {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"canUndo": s.history.CanUndo(),
		"canRedo": s.history.CanRedo(),
		"length":  s.history.Len(),
	})
}

func (s *Server) undo(c *gin.Context) {
	s.histMu.Lock()
	defer s.histMu.Unlock()

	if err := s.history.Undo(c.Request.Context()); err != nil {
		log.WithError(err).Error("error undoing command")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to undo"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"canUndo": s.history.CanUndo(), "canRedo": s.history.CanRedo()})
}

func (s *Server) redo(c *gin.Context) {
	s.histMu.Lock()
	defer s.histMu.Unlock()

	if err := s.history.Redo(c.Request.Context()); err != nil {
		log.WithError(err).Error("error redoing command")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to redo"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"canUndo": s.history.CanUndo(), "canRedo": s.history.CanRedo()})
}

func (s *Server) pushCommand(cmd usecase.Command) {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	s.history.Push(cmd)
}

func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, model.ErrHasFriendships):
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete user with existing friendships. Please unlink all friends first."})
	default:
		log.WithError(err).Error("internal error serving request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// graphUsecase is the surface of the graph service this actor consumes.
type graphUsecase interface {
	// CreateUser creates a user.
	CreateUser(ctx context.Context, args model.CreateUserArgs) (*model.CreateUserResponse, error)

	// GetUser returns an enriched user.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// ListUsers lists all enriched users.
	ListUsers(ctx context.Context) (*model.ListUsersResponse, error)

	// UpdateUser updates a user.
	UpdateUser(ctx context.Context, args model.UpdateUserArgs) (*model.UpdateUserResponse, error)

	// DeleteUser deletes a user without friendships.
	DeleteUser(ctx context.Context, id string) error

	// LinkUsers creates a friendship.
	LinkUsers(ctx context.Context, args model.LinkUsersArgs) (*model.LinkUsersResponse, error)

	// UnlinkUsers removes a friendship.
	UnlinkUsers(ctx context.Context, args model.LinkUsersArgs) (bool, error)

	// Snapshot assembles the graph read-model.
	Snapshot(ctx context.Context) (*model.GraphSnapshot, error)
}
