package testbackend

import (
	"net/http"
	"slices"
	"time"
)

type wishlistEntry struct {
	ID          int64     `json:"id"`
	User        int64     `json:"user"`
	Game        int64     `json:"game"`
	GameDetails *game     `json:"game_details"`
	CreatedAt   time.Time `json:"created_at"`
}

// InWishlist reports whether userID saved gameID.
func (s *Server) InWishlist(userID, gameID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.wishlist[userID][gameID]
	return ok
}

// AddWishlist saves gameID for userID directly.
func (s *Server) AddWishlist(userID, gameID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addWishlistLocked(userID, gameID)
}

func (s *Server) addWishlistLocked(userID, gameID int64) bool {
	if s.wishlist[userID] == nil {
		s.wishlist[userID] = make(map[int64]time.Time)
	}
	if _, ok := s.wishlist[userID][gameID]; ok {
		return false
	}
	s.wishlist[userID][gameID] = s.now()
	return true
}

func (s *Server) handleWishlist(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	s.mu.Lock()
	entries := make([]wishlistEntry, 0, len(s.wishlist[userID]))
	for gameID, added := range s.wishlist[userID] {
		entries = append(entries, wishlistEntry{
			ID:          gameID,
			User:        userID,
			Game:        gameID,
			GameDetails: s.games[gameID],
			CreatedAt:   added,
		})
	}
	s.mu.Unlock()

	slices.SortFunc(entries, func(a, b wishlistEntry) int { return a.CreatedAt.Compare(b.CreatedAt) })
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAddWishlist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GameID int64 `json:"game_id"`
	}
	if err := readJSON(r, &body); err != nil || body.GameID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Game ID is required."})
		return
	}

	userID := userIDFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[body.GameID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Game not found."})
		return
	}
	if !s.addWishlistLocked(userID, body.GameID) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Game is already in your wishlist."})
		return
	}
	writeJSON(w, http.StatusCreated, wishlistEntry{
		ID:          body.GameID,
		User:        userID,
		Game:        body.GameID,
		GameDetails: g,
		CreatedAt:   s.wishlist[userID][body.GameID],
	})
}

func (s *Server) handleWishlistStatus(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	s.mu.Lock()
	_, ok := s.wishlist[userID][pathID(r)]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"is_in_wishlist": ok})
}

func (s *Server) handleRemoveWishlist(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	gameID := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wishlist[userID][gameID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Game is not in your wishlist."})
		return
	}
	delete(s.wishlist[userID], gameID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Game removed from wishlist."})
}
