// Package testbackend is an in-memory stand-in for the game discovery REST
// service. It speaks the same paths and payload shapes, including
// quoted-bracket list fields, and lets tests force failures or hold
// requests open.
package testbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ctxKey struct{}

// Call is one request seen by the server.
type Call struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

type fault struct {
	status      int
	contentType string
	body        string
	times       int
}

// Server is the fake backend.
type Server struct {
	mu sync.Mutex

	users      map[int64]*user
	byUsername map[string]int64
	tokens     map[string]int64
	games      map[int64]*game
	reviews    map[int64]*review
	wishlist   map[int64]map[int64]time.Time
	nextUserID int64
	nextRevID  int64
	tick       int
	base       time.Time

	faults map[string]*fault
	holds  map[string]chan struct{}
	calls  []Call

	router *mux.Router
	http   *httptest.Server
}

// New creates an empty server. Call Start to listen.
func New() *Server {
	s := &Server{
		users:      make(map[int64]*user),
		byUsername: make(map[string]int64),
		tokens:     make(map[string]int64),
		games:      make(map[int64]*game),
		reviews:    make(map[int64]*review),
		wishlist:   make(map[int64]map[int64]time.Time),
		faults:     make(map[string]*fault),
		holds:      make(map[string]chan struct{}),
		base:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	s.router = s.routes()
	return s
}

// Start listens on a loopback port.
func (s *Server) Start() *Server {
	s.http = httptest.NewServer(s)
	return s
}

// URL is the base URL of a started server.
func (s *Server) URL() string {
	return s.http.URL
}

// Close stops the listener.
func (s *Server) Close() {
	if s.http != nil {
		s.http.Close()
	}
}

// ServeHTTP records the call, applies faults and holds, then routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
	})
	hold := s.holds[key]
	f := s.faults[key]
	if f != nil {
		f.times--
		if f.times <= 0 {
			delete(s.faults, key)
		}
	}
	s.mu.Unlock()

	if hold != nil {
		<-hold
	}
	if f != nil {
		if f.status == 0 {
			if hj, ok := w.(http.Hijacker); ok {
				if conn, _, err := hj.Hijack(); err == nil {
					_ = conn.Close()
					return
				}
			}
		}
		w.Header().Set("Content-Type", f.contentType)
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
		return
	}

	s.router.ServeHTTP(w, r)
}

// Fail makes the next times requests to method+path answer with status and
// a raw JSON body. Status 0 drops the connection instead.
func (s *Server) Fail(method, path string, status int, body string, times int) {
	s.FailWith(method, path, status, "application/json", body, times)
}

// FailWith is Fail with an explicit content type.
func (s *Server) FailWith(method, path string, status int, contentType, body string, times int) {
	if times < 1 {
		times = 1
	}
	s.mu.Lock()
	s.faults[method+" "+path] = &fault{status: status, contentType: contentType, body: body, times: times}
	s.mu.Unlock()
}

// Hold blocks requests to method+path until the returned release is called.
func (s *Server) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[method+" "+path] = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, method+" "+path)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns every request seen so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountCalls counts requests with method whose path starts with prefix.
func (s *Server) CountCalls(method, prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	s.tokens = make(map[string]int64)
	s.mu.Unlock()
}

// TokenValid reports whether token is currently accepted.
func (s *Server) TokenValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

func (s *Server) issueToken(userID int64) string {
	tok := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.tokens[tok] = userID
	return tok
}

// now returns a strictly increasing timestamp so orderings are stable.
func (s *Server) now() time.Time {
	s.tick++
	return s.base.Add(time.Duration(s.tick) * time.Second)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/accounts/login/", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/accounts/signup/", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/games/", s.handleListGames).Methods(http.MethodPost)
	r.HandleFunc("/games/{id:[0-9]+}/", s.handleGetGame).Methods(http.MethodGet)
	r.HandleFunc("/reviews/game/{id:[0-9]+}/", s.handleGameReviews).Methods(http.MethodGet)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.requireToken)
	authed.HandleFunc("/accounts/logout/", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/accounts/current-user/", s.handleCurrentUser).Methods(http.MethodGet)
	authed.HandleFunc("/accounts/change-password/", s.handleChangePassword).Methods(http.MethodPost)
	authed.HandleFunc("/accounts/update-profile-image/", s.handleUploadImage).Methods(http.MethodPost, http.MethodPut)
	authed.HandleFunc("/accounts/update-profile-image/", s.handleDeleteImage).Methods(http.MethodDelete)
	authed.HandleFunc("/reviews/game/{id:[0-9]+}/user/", s.handleMyReview).Methods(http.MethodGet)
	authed.HandleFunc("/reviews/", s.handleCreateReview).Methods(http.MethodPost)
	authed.HandleFunc("/reviews/{id:[0-9]+}/", s.handleUpdateReview).Methods(http.MethodPut)
	authed.HandleFunc("/reviews/{id:[0-9]+}/", s.handleDeleteReview).Methods(http.MethodDelete)
	authed.HandleFunc("/wishlist/", s.handleWishlist).Methods(http.MethodGet)
	authed.HandleFunc("/wishlist/", s.handleAddWishlist).Methods(http.MethodPost)
	authed.HandleFunc("/wishlist/game/{id:[0-9]+}/", s.handleWishlistStatus).Methods(http.MethodGet)
	authed.HandleFunc("/wishlist/game/{id:[0-9]+}/", s.handleRemoveWishlist).Methods(http.MethodDelete)

	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		tok, ok := strings.CutPrefix(header, "Token ")
		s.mu.Lock()
		userID, valid := s.tokens[tok]
		s.mu.Unlock()
		if !ok || !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

func userIDFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}

func pathID(r *http.Request) int64 {
	var id int64
	_, _ = fmt.Sscan(mux.Vars(r)["id"], &id)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}
	return nil
}
