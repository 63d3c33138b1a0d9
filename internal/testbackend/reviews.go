package testbackend

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

type reviewUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type review struct {
	ID        int64      `json:"id"`
	User      reviewUser `json:"user"`
	Username  string     `json:"username"`
	Game      int64      `json:"game"`
	Rating    int        `json:"rating"`
	Review    string     `json:"review"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type reviewBody struct {
	Game   *int64  `json:"game"`
	GameID *int64  `json:"game_id"`
	Rating *int    `json:"rating"`
	Review *string `json:"review"`
}

// AddReview stores a review directly and returns its id.
func (s *Server) AddReview(userID, gameID int64, rating int, text string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addReviewLocked(userID, gameID, rating, text).ID
}

// ReviewCount returns how many reviews userID has for gameID.
func (s *Server) ReviewCount(userID, gameID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rv := range s.reviews {
		if rv.User.ID == userID && rv.Game == gameID {
			n++
		}
	}
	return n
}

func (s *Server) addReviewLocked(userID, gameID int64, rating int, text string) *review {
	s.nextRevID++
	now := s.now()
	u := s.users[userID]
	rv := &review{
		ID:        s.nextRevID,
		User:      reviewUser{ID: u.ID, Username: u.Username},
		Username:  u.Username,
		Game:      gameID,
		Rating:    rating,
		Review:    text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.reviews[rv.ID] = rv
	return rv
}

func (s *Server) handleGameReviews(w http.ResponseWriter, r *http.Request) {
	gameID := pathID(r)
	page := queryInt(r, "page", 1)
	size := queryInt(r, "page_size", 5)
	ordering := r.URL.Query().Get("ordering")
	if ordering == "" {
		ordering = "-created_at"
	}

	s.mu.Lock()
	if _, ok := s.games[gameID]; !ok {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Game not found"})
		return
	}
	var list []*review
	sum := 0
	for _, rv := range s.reviews {
		if rv.Game == gameID {
			list = append(list, rv)
			sum += rv.Rating
		}
	}
	s.mu.Unlock()

	sortReviews(list, ordering)

	total := len(list)
	totalPages := 1
	if total > 0 {
		totalPages = (total + size - 1) / size
	}
	avg := 0.0
	if total > 0 {
		avg = float64(sum) / float64(total)
	}
	start := min((page-1)*size, total)
	end := min(start+size, total)

	writeJSON(w, http.StatusOK, map[string]any{
		"reviews": nonNil(list[start:end]),
		"pagination": map[string]int{
			"total_reviews": total,
			"total_pages":   totalPages,
			"current_page":  page,
			"page_size":     size,
		},
		"average_rating": avg,
	})
}

func (s *Server) handleMyReview(w http.ResponseWriter, r *http.Request) {
	gameID := pathID(r)
	userID := userIDFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[gameID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Game not found"})
		return
	}
	for _, rv := range s.reviews {
		if rv.Game == gameID && rv.User.ID == userID {
			writeJSON(w, http.StatusOK, rv)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"has_review": false,
		"message":    "You have not reviewed this game yet",
	})
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var body reviewBody
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if body.GameID == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Game ID is required"})
		return
	}
	if errs := validateReview(body, true); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	userID := userIDFrom(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[*body.GameID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Game not found"})
		return
	}
	for _, rv := range s.reviews {
		if rv.Game == *body.GameID && rv.User.ID == userID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "You have already reviewed this game"})
			return
		}
	}
	rv := s.addReviewLocked(userID, *body.GameID, *body.Rating, *body.Review)
	writeJSON(w, http.StatusCreated, rv)
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var body reviewBody
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if errs := validateReview(body, false); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rv, ok := s.reviews[pathID(r)]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Review not found"})
		return
	}
	if rv.User.ID != userIDFrom(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "You do not have permission to edit this review"})
		return
	}
	if body.Rating != nil {
		rv.Rating = *body.Rating
	}
	if body.Review != nil {
		rv.Review = *body.Review
	}
	rv.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, rv)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rv, ok := s.reviews[pathID(r)]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Review not found"})
		return
	}
	if rv.User.ID != userIDFrom(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "You do not have permission to delete this review"})
		return
	}
	delete(s.reviews, rv.ID)
	w.WriteHeader(http.StatusNoContent)
}

func validateReview(body reviewBody, create bool) map[string][]string {
	errs := map[string][]string{}
	if body.Rating == nil {
		if create {
			errs["rating"] = []string{"This field is required."}
		}
	} else if *body.Rating < 1 || *body.Rating > 5 {
		errs["rating"] = []string{"Ensure this value is between 1 and 5."}
	}
	if body.Review == nil {
		if create {
			errs["review"] = []string{"This field is required."}
		}
	} else if strings.TrimSpace(*body.Review) == "" {
		errs["review"] = []string{"This field may not be blank."}
	}
	return errs
}

func sortReviews(list []*review, ordering string) {
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")
	slices.SortFunc(list, func(a, b *review) int {
		var c int
		switch field {
		case "updated_at":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		case "rating":
			c = a.Rating - b.Rating
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = int(a.ID - b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}
