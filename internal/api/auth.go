package api

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Auth verifies bearer session tokens. Sessions are configured as
// userID:bcrypt-hash pairs; the raw token never leaves the client's config.
type Auth struct {
	sessions map[string][]byte // userID -> bcrypt hash of the session token
	admins   map[string]bool
}

// NewAuth parses the configured session list ("user1:hash1,user2:hash2")
// and the admin user list.
func NewAuth(sessions string, admins []string) (*Auth, error) {
	a := &Auth{
		sessions: make(map[string][]byte),
		admins:   make(map[string]bool),
	}
	for _, pair := range strings.Split(sessions, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		user, hash, ok := strings.Cut(pair, ":")
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("malformed session entry %q", pair)
		}
		a.sessions[user] = []byte(hash)
	}
	for _, u := range admins {
		a.admins[u] = true
	}
	return a, nil
}

// Authenticate resolves the request's bearer token to a user ID.
func (a *Auth) Authenticate(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	for user, hash := range a.sessions {
		if bcrypt.CompareHashAndPassword(hash, []byte(token)) == nil {
			return user, true
		}
	}
	return "", false
}

// IsAdmin reports whether the user may read aggregate reports.
func (a *Auth) IsAdmin(userID string) bool {
	return a.admins[userID]
}
