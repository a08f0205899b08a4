package auth

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/LeonardoBeccarini/campus_dashboard/internal/model/entities"
)

// Authenticator resolves a bearer token to the signed-in user.
type Authenticator interface {
	Authenticate(token string) (entities.User, bool)
}

// StaticTokens is an in-memory token table, loaded from configuration.
type StaticTokens struct {
	mu     sync.RWMutex
	tokens map[string]entities.User
}

var _ Authenticator = (*StaticTokens)(nil)

// ParseTokens accetta una stringa tipo "tok1=alice@uni-a,tok2=bob@uni-b".
// The user part may omit the id ("tok3=@uni-c" or "tok3=uni-c").
func ParseTokens(s string) (*StaticTokens, error) {
	st := &StaticTokens{tokens: make(map[string]entities.User)}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid AUTH_TOKENS entry: %q", p)
		}
		token, who := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		var u entities.User
		if i := strings.LastIndex(who, "@"); i >= 0 {
			u.ID, u.Scope = who[:i], who[i+1:]
		} else {
			u.Scope = who
		}
		if token == "" || u.Scope == "" {
			return nil, fmt.Errorf("invalid AUTH_TOKENS entry: %q", p)
		}
		if u.ID == "" {
			u.ID = token
		}
		st.tokens[token] = u
	}
	return st, nil
}

// Add registers or replaces a token.
func (s *StaticTokens) Add(token string, u entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		s.tokens = make(map[string]entities.User)
	}
	s.tokens[token] = u
}

func (s *StaticTokens) Authenticate(token string) (entities.User, bool) {
	if s == nil || strings.TrimSpace(token) == "" {
		return entities.User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.tokens[strings.TrimSpace(token)]
	return u, ok
}

// BearerToken extracts the token from "Authorization: Bearer <t>".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// UserFromRequest resolves the request's bearer token. A nil authenticator
// means nobody is signed in.
func UserFromRequest(a Authenticator, r *http.Request) (entities.User, bool) {
	if a == nil {
		return entities.User{}, false
	}
	return a.Authenticate(BearerToken(r))
}
