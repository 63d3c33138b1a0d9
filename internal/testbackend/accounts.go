package testbackend

import (
	"io"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type user struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	ProfileImage *string `json:"profile_image"`
	passwordHash []byte
}

// hashPassword uses the minimum cost to keep tests fast.
func hashPassword(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic("testbackend: hashing password: " + err.Error())
	}
	return hash
}

func (u *user) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) == nil
}

// AddUser registers an account and returns its id.
func (s *Server) AddUser(username, password, firstName, lastName string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, password, firstName, lastName)
}

// IssueToken signs userID in directly and returns the token.
func (s *Server) IssueToken(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueToken(userID)
}

func (s *Server) addUserLocked(username, password, firstName, lastName string) int64 {
	s.nextUserID++
	u := &user{
		ID:           s.nextUserID,
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    firstName,
		LastName:     lastName,
		passwordHash: hashPassword(password),
	}
	s.users[u.ID] = u
	s.byUsername[username] = u.ID
	return u.ID
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byUsername[body.Username]
	if !ok || !s.users[id].checkPassword(body.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid username or password."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    s.users[id],
		"token":   s.issueToken(id),
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		Username        string `json:"username"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	if body.FirstName == "" || body.LastName == "" || body.Username == "" || body.Password == "" || body.ConfirmPassword == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "All fields are required."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[body.Username]; taken {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username is already taken."})
		return
	}
	if body.Password != body.ConfirmPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Passwords do not match."})
		return
	}
	if len(body.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, []string{"This password is too short. It must contain at least 8 characters."})
		return
	}

	id := s.addUserLocked(body.Username, body.Password, body.FirstName, body.LastName)
	writeJSON(w, http.StatusCreated, map[string]any{
		"detail": "Account created successfully!",
		"user":   s.users[id],
		"token":  s.issueToken(id),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	s.mu.Lock()
	for tok, id := range s.tokens {
		if id == userID {
			delete(s.tokens, tok)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Successfully logged out."})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.users[userIDFrom(r)])
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := readJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userIDFrom(r)]
	switch {
	case body.CurrentPassword == "" || body.NewPassword == "" || body.ConfirmPassword == "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "All fields are required."})
		return
	case !u.checkPassword(body.CurrentPassword):
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Current password is incorrect."})
		return
	case body.NewPassword != body.ConfirmPassword:
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "New passwords do not match."})
		return
	}

	u.passwordHash = hashPassword(body.NewPassword)
	for tok, id := range s.tokens {
		if id == u.ID {
			delete(s.tokens, tok)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"detail": "Password changed successfully.",
		"token":  s.issueToken(u.ID),
	})
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	file, hdr, err := r.FormFile("profile_image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"profile_image": {"No file was submitted."}})
		return
	}
	defer func() { _ = file.Close() }()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userIDFrom(r)]
	url := "/media/profile_images/" + strings.ReplaceAll(hdr.Filename, " ", "_")
	u.ProfileImage = &url
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userIDFrom(r)]
	u.ProfileImage = nil
	writeJSON(w, http.StatusOK, u)
}
