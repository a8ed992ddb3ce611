package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conorfennell/vocabdeck/internal/domain"
	"github.com/conorfennell/vocabdeck/internal/lookup"
	"github.com/conorfennell/vocabdeck/internal/scheduler"
	"github.com/conorfennell/vocabdeck/internal/sm2"
	"github.com/conorfennell/vocabdeck/internal/storage"
	"github.com/conorfennell/vocabdeck/internal/term"
)

// Server holds the dependencies for the HTTP server. Every scheduler call
// happens with mu held.
type Server struct {
	mu     sync.Mutex
	sched  *scheduler.Scheduler
	token  string // checkout token of the card handed out by /review/next
	lookup lookup.Provider
	logger *zap.Logger
	router *http.ServeMux
}

// NewServer creates and configures a new server. provider may be nil, in
// which case cards can only be added with their content supplied.
func NewServer(sched *scheduler.Scheduler, provider lookup.Provider, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sched:  sched,
		lookup: provider,
		logger: logger,
		router: http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /stats", s.handleGetStats())
	s.router.HandleFunc("GET /cards", s.handleGetCards())
	s.router.HandleFunc("POST /cards", s.handlePostCard())
	s.router.HandleFunc("DELETE /cards/{key}", s.handleDeleteCard())
	s.router.HandleFunc("POST /review/next", s.handlePostNextReview())
	s.router.HandleFunc("POST /review", s.handlePostReview())
}

type cardView struct {
	Key         string         `json:"key"`
	Content     domain.Content `json:"content"`
	EaseFactor  float64        `json:"ease_factor"`
	Interval    int            `json:"interval"`
	Repetitions int            `json:"repetitions"`
	NextReview  civil.Date     `json:"next_review"`
	LastReview  *civil.Date    `json:"last_review"`
	Token       string         `json:"token,omitempty"`
}

func viewOf(c *sm2.Card) cardView {
	st := c.State()
	return cardView{
		Key:         c.Key(),
		Content:     c.Content(),
		EaseFactor:  st.EaseFactor,
		Interval:    st.Interval,
		Repetitions: st.Repetitions,
		NextReview:  st.NextReview,
		LastReview:  st.LastReview,
	}
}

type statsView struct {
	scheduler.Stats
	Total int `json:"total"`
}

// handleGetStats reports the collection's learning progress.
func (s *Server) handleGetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		st := s.sched.Statistics()
		s.mu.Unlock()

		s.writeJSON(w, http.StatusOK, statsView{Stats: st, Total: st.Total()})
	}
}

// handleGetCards lists the collection sorted by word, optionally narrowed
// with ?filter=.
func (s *Server) handleGetCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("filter")

		s.mu.Lock()
		views := make([]cardView, 0, s.sched.Len())
		for _, key := range s.sched.Keys() {
			if !term.Contains(key, filter) {
				continue
			}
			c, _ := s.sched.Card(key)
			views = append(views, viewOf(c))
		}
		s.mu.Unlock()

		s.writeJSON(w, http.StatusOK, views)
	}
}

type addCardRequest struct {
	Key     string         `json:"key"`
	Content domain.Content `json:"content"`
}

// handlePostCard adds a word. Without content in the request the content is
// fetched from the dictionary, outside the lock.
func (s *Server) handlePostCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addCardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		key := term.Normalize(req.Key)
		if key == "" {
			s.writeError(w, http.StatusBadRequest, "Word cannot be empty")
			return
		}

		s.mu.Lock()
		_, exists := s.sched.Find(key)
		s.mu.Unlock()
		if exists {
			s.writeError(w, http.StatusConflict, "Word already in collection")
			return
		}

		content := req.Content
		if len(content) == 0 {
			var status int
			content, status = s.fetchContent(r.Context(), key)
			if status != 0 {
				switch status {
				case http.StatusNotFound:
					s.writeError(w, status, "No definitions found")
				case http.StatusBadRequest:
					s.writeError(w, status, "Content is required")
				default:
					s.writeError(w, status, "Dictionary lookup failed")
				}
				return
			}
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		c, err := s.sched.Insert(key, content)
		switch {
		case errors.Is(err, scheduler.ErrDuplicateKey):
			s.writeError(w, http.StatusConflict, "Word already in collection")
			return
		case err != nil:
			s.logger.Error("Error inserting card", zap.String("key", key), zap.Error(err))
			s.writeError(w, http.StatusBadRequest, "Failed to add word")
			return
		}
		if err := s.sched.Save(r.Context()); err != nil {
			// Keep memory and disk in step: a word that was not saved is not added.
			if rmErr := s.sched.Remove(c.Key()); rmErr != nil {
				s.logger.Error("Error rolling back insert", zap.String("key", key), zap.Error(rmErr))
			}
			s.writeError(w, http.StatusInternalServerError, "Failed to save collection")
			return
		}

		s.writeJSON(w, http.StatusCreated, viewOf(c))
	}
}

// fetchContent returns the dictionary content for key, or the HTTP status
// to report when there is none.
func (s *Server) fetchContent(ctx context.Context, key string) (domain.Content, int) {
	if s.lookup == nil {
		return nil, http.StatusBadRequest
	}
	content, err := s.lookup.Lookup(ctx, key)
	switch {
	case errors.Is(err, lookup.ErrNotFound):
		return nil, http.StatusNotFound
	case err != nil:
		s.logger.Warn("Dictionary lookup failed", zap.String("key", key), zap.Error(err))
		return nil, http.StatusBadGateway
	}
	return content, 0
}

// handleDeleteCard removes a word, matched ignoring case, and saves the
// collection.
func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")

		s.mu.Lock()
		defer s.mu.Unlock()

		c, ok := s.sched.Find(key)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := s.sched.Remove(c.Key()); err != nil {
			s.logger.Error("Error removing card", zap.String("key", key), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "Failed to remove word")
			return
		}
		if err := s.sched.Save(r.Context()); err != nil {
			// As with inserts, a removal that was not saved is undone.
			if rbErr := s.sched.Reinsert(c); rbErr != nil {
				s.logger.Error("Error rolling back removal", zap.String("key", c.Key()), zap.Error(rbErr))
			}
			s.writeError(w, http.StatusInternalServerError, "Failed to save collection")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostNextReview checks out the next due card and hands out a fresh
// token for it. The previous token stops being accepted.
func (s *Server) handlePostNextReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		c, ok := s.sched.NextCard()
		if !ok {
			s.token = ""
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.token = uuid.NewString()

		view := viewOf(c)
		view.Token = s.token
		s.writeJSON(w, http.StatusOK, view)
	}
}

type reviewRequest struct {
	Token   string `json:"token"`
	Quality *int   `json:"quality"`
}

type reviewResponse struct {
	Key        string     `json:"key"`
	Interval   int        `json:"interval"`
	NextReview civil.Date `json:"next_review"`
	Saved      bool       `json:"saved"`
}

// handlePostReview applies a grade to the checked-out card. A token other
// than the one last handed out is rejected, so a repeated submission for the
// same card cannot be applied twice.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quality == nil {
			s.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if req.Token == "" || req.Token != s.token {
			s.writeError(w, http.StatusConflict, "Stale or unknown review token")
			return
		}
		c, ok := s.sched.Current()
		if !ok {
			s.token = ""
			s.writeError(w, http.StatusConflict, "No card checked out")
			return
		}

		interval, err := s.sched.SubmitReview(r.Context(), sm2.Quality(*req.Quality))
		switch {
		case errors.Is(err, scheduler.ErrInvalidQuality):
			s.writeError(w, http.StatusBadRequest, "Quality must be between 0 and 5")
			return
		case errors.Is(err, scheduler.ErrNoCardCheckedOut):
			s.token = ""
			s.writeError(w, http.StatusConflict, "No card checked out")
			return
		case err != nil && !errors.Is(err, storage.ErrWrite):
			s.logger.Error("Error submitting review", zap.String("key", c.Key()), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "Failed to apply review")
			return
		}
		s.token = ""

		s.writeJSON(w, http.StatusOK, reviewResponse{
			Key:        c.Key(),
			Interval:   interval,
			NextReview: c.State().NextReview,
			Saved:      err == nil,
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Error writing response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
