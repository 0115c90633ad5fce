package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library-borrowing/library"
)

const SessionHeader = "X-Session-Id"

// Library is what the API needs from the application core.
// *library.LibraryManager satisfies it.
type Library interface {
	NewSession() *library.Session
	Health(ctx context.Context) error
}

type sessionEntry struct {
	mu       sync.Mutex
	session  *library.Session
	lastSeen atomic.Int64 // unix nanos
}

// Server exposes borrow-page sessions over HTTP. Requests on one session are
// serialized; different sessions run concurrently.
type Server struct {
	lib    Library
	logger library.Logger

	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewServer(lib Library, logger library.Logger) *Server {
	if logger == nil {
		logger = library.NopLogger()
	}
	return &Server{lib: lib, logger: logger, now: time.Now, sessions: make(map[string]*sessionEntry)}
}

// Router builds the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/manage/health", s.healthCheck)

	api := r.Group("/api/v1")
	api.POST("/sessions", s.createSession)

	sess := api.Group("", s.withSession)
	sess.DELETE("/sessions", s.deleteSession)
	sess.GET("/books", s.getBooks)
	sess.GET("/genres", s.getGenres)
	sess.GET("/cart", s.getCart)
	sess.POST("/cart/:bookId", s.addToCart)
	sess.DELETE("/cart/:bookId", s.removeFromCart)
	sess.POST("/checkout", s.checkout)
	sess.POST("/register", s.register)
	sess.POST("/login", s.login)
	sess.POST("/logout", s.logout)
	sess.GET("/me", s.me)
	sess.GET("/history", s.getHistory)
	return r
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func (s *Server) createSession(c *gin.Context) {
	id := uuid.NewString()
	e := &sessionEntry{session: s.lib.NewSession()}
	e.lastSeen.Store(s.now().UnixNano())
	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	s.logger.Debug("session created", "session", id)
	c.Header(SessionHeader, id)
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

func (s *Server) deleteSession(c *gin.Context) {
	id := c.GetHeader(SessionHeader)
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.logger.Debug("session deleted", "session", id)
	c.Status(http.StatusNoContent)
}

// EvictIdle drops sessions not used for longer than maxIdle and returns how
// many were removed.
func (s *Server) EvictIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle).UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.sessions {
		if e.lastSeen.Load() < cutoff {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// SweepIdle runs EvictIdle every maxIdle/2 until ctx is done. A non-positive
// maxIdle disables eviction.
func (s *Server) SweepIdle(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(maxIdle); n > 0 {
				s.logger.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

// SessionCount reports the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) lookup(id string) (*sessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

// withSession resolves the session header and holds the session lock for the
// rest of the request.
func (s *Server) withSession(c *gin.Context) {
	id := c.GetHeader(SessionHeader)
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": SessionHeader + " header is required"})
		return
	}
	e, ok := s.lookup(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSeen.Store(s.now().UnixNano())
	c.Set("session", e.session)
	c.Next()
}

func session(c *gin.Context) *library.Session {
	return c.MustGet("session").(*library.Session)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) getBooks(c *gin.Context) {
	view, err := session(c).Snapshot(c.Query("q"), c.DefaultQuery("genre", "all"))
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) getGenres(c *gin.Context) {
	view, err := session(c).Snapshot("", "all")
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": view.Genres})
}

func (s *Server) getCart(c *gin.Context) {
	cart := session(c).Cart()
	c.JSON(http.StatusOK, gin.H{
		"items":        cart.Items(),
		"count":        cart.Len(),
		"can_checkout": !cart.IsEmpty(),
	})
}

func (s *Server) addToCart(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	s.respond(c, session(c).OnAdd(id))
}

func (s *Server) removeFromCart(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	s.respond(c, session(c).OnRemove(id))
}

func (s *Server) checkout(c *gin.Context) {
	n := session(c).OnCheckout(c.Request.Context())
	if n.Err != nil && errors.Is(n.Err, library.ErrHistoryPersist) {
		// Committed; only the history write failed.
		c.JSON(http.StatusOK, gin.H{
			"kind":    n.Kind,
			"message": n.Message,
			"receipt": n.Receipt,
			"warning": "Your borrowing history could not be saved.",
		})
		return
	}
	s.respond(c, n)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.respond(c, session(c).Register(c.Request.Context(), req.Email, req.Password))
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.respond(c, session(c).Login(c.Request.Context(), req.Email, req.Password))
}

func (s *Server) logout(c *gin.Context) {
	s.respond(c, session(c).Logout())
}

func (s *Server) me(c *gin.Context) {
	user, ok := session(c).Identity().CurrentUser()
	c.JSON(http.StatusOK, gin.H{"user": user, "signed_in": ok})
}

func (s *Server) getHistory(c *gin.Context) {
	recs, err := session(c).History(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": library.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": recs})
}

func (s *Server) healthCheck(c *gin.Context) {
	if err := s.lib.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func bookID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("bookId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return 0, false
	}
	return id, true
}

func (s *Server) respond(c *gin.Context, n library.Notice) {
	if n.Err != nil {
		status := statusFor(n.Err)
		if status == http.StatusInternalServerError {
			s.logger.Error("request failed", "path", c.FullPath(), "error", n.Err)
		}
		c.JSON(status, n)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": library.UserMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrBookUnavailable), errors.Is(err, library.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, library.ErrNotInCart), errors.Is(err, library.ErrEmptyCart),
		errors.Is(err, library.ErrInvalidEmail), errors.Is(err, library.ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrNotAuthenticated), errors.Is(err, library.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
