package testbackend

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

type game struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Released        *string `json:"released"`
	BackgroundImage *string `json:"background_image"`
	Rating          float64 `json:"rating"`
	MetacriticScore *int    `json:"metacritic_score"`
	Playtime        int     `json:"playtime"`
	Platforms       string  `json:"platforms"`
	Genres          string  `json:"genres"`
	Stores          string  `json:"stores"`
	ESRBRating      *string `json:"esrb_rating"`
	Description     string  `json:"description"`
	Screenshots     string  `json:"screenshots"`

	genres    []string
	platforms []string
}

// GameSpec describes a catalog entry to seed.
type GameSpec struct {
	ID         int64
	Name       string
	Released   string
	Metacritic int
	Genres     []string
	Platforms  []string
}

// AddGame adds a catalog entry. List fields are stored the way the real
// service stores them: as Python-style quoted-bracket strings.
func (s *Server) AddGame(spec GameSpec) {
	g := &game{
		ID:          spec.ID,
		Name:        spec.Name,
		Rating:      float64(spec.Metacritic) / 20,
		Playtime:    int(spec.ID % 40),
		Platforms:   pyList(spec.Platforms),
		Genres:      pyList(spec.Genres),
		Stores:      "Steam, GOG",
		Description: "<p>" + spec.Name + "</p>",
		Screenshots: pyList([]string{fmt.Sprintf("https://img.example.com/%d/1.jpg", spec.ID)}),
		genres:      spec.Genres,
		platforms:   spec.Platforms,
	}
	if spec.Released != "" {
		g.Released = &spec.Released
	}
	if spec.Metacritic > 0 {
		m := spec.Metacritic
		g.MetacriticScore = &m
	}
	img := fmt.Sprintf("https://img.example.com/%d/cover.jpg", spec.ID)
	g.BackgroundImage = &img

	s.mu.Lock()
	s.games[g.ID] = g
	s.mu.Unlock()
}

// SeedCatalog adds n games with ids 1..n. Odd ids are RPGs on PC, even ids
// are Action games on PlayStation 5, and every third is also on Switch.
func (s *Server) SeedCatalog(n int) {
	for i := 1; i <= n; i++ {
		spec := GameSpec{
			ID:         int64(i),
			Name:       fmt.Sprintf("Game %02d", i),
			Released:   fmt.Sprintf("20%02d-01-15", i%25),
			Metacritic: 100 - i,
		}
		if i%2 == 1 {
			spec.Genres = []string{"RPG", "Adventure"}
			spec.Platforms = []string{"PC"}
		} else {
			spec.Genres = []string{"Action"}
			spec.Platforms = []string{"PlayStation 5"}
		}
		if i%3 == 0 {
			spec.Platforms = append(spec.Platforms, "Nintendo Switch")
		}
		s.AddGame(spec)
	}
}

func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Search       string `json:"search"`
		Genres       string `json:"genres"`
		Platforms    string `json:"platforms"`
		Page         int    `json:"page"`
		ItemsPerPage int    `json:"items_per_page"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if body.Page < 1 {
		body.Page = 1
	}
	if body.ItemsPerPage < 1 {
		body.ItemsPerPage = 50
	}

	s.mu.Lock()
	var matched []*game
	for _, g := range s.games {
		if body.Search != "" && !strings.Contains(strings.ToLower(g.Name), strings.ToLower(body.Search)) {
			continue
		}
		if body.Genres != "" && body.Genres != "All Genres" && !slices.Contains(g.genres, body.Genres) {
			continue
		}
		if body.Platforms != "" && body.Platforms != "All Platforms" && !slices.Contains(g.platforms, body.Platforms) {
			continue
		}
		matched = append(matched, g)
	}
	s.mu.Unlock()

	slices.SortFunc(matched, func(a, b *game) int {
		if score(b) != score(a) {
			return score(b) - score(a)
		}
		return int(a.ID - b.ID)
	})

	total := len(matched)
	totalPages := (total + body.ItemsPerPage - 1) / body.ItemsPerPage
	start := min((body.Page-1)*body.ItemsPerPage, total)
	end := min(start+body.ItemsPerPage, total)

	writeJSON(w, http.StatusOK, map[string]any{
		"games":        nonNil(matched[start:end]),
		"total_items":  total,
		"total_pages":  totalPages,
		"current_page": body.Page,
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	g, ok := s.games[pathID(r)]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Game not found"})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func score(g *game) int {
	if g.MetacriticScore == nil {
		return 0
	}
	return *g.MetacriticScore
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
