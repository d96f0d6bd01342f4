package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultTokenTTL applies when the config leaves the token lifetime unset.
const defaultTokenTTL = 15 // minutes

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Secret string `json:"secret"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// handleLogin exchanges the shared secret for a short-lived token, so
// panels do not have to hold the secret past startup.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if !s.secretMatches(req.Secret) {
		writeUnauthorized(w, "invalid secret")
		return
	}

	ttl := s.secCfg.JWT.TokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	expiresAt := time.Now().Add(time.Duration(ttl) * time.Minute)

	claims := jwt.MapClaims{
		"sub": "orii-panel",
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret()))
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     signed,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// authorized reports whether the request carries valid credentials: the
// shared secret in X-Orii-Key or a login token in Authorization.
func (s *Server) authorized(r *http.Request) bool {
	if s.secretMatches(r.Header.Get("X-Orii-Key")) {
		return true
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return s.validToken(token)
	}
	return false
}

// validCredential accepts either form of credential in one string. Used by
// the WebSocket handler, where the token query parameter carries whichever
// the client has.
func (s *Server) validCredential(credential string) bool {
	return s.secretMatches(credential) || s.validToken(credential)
}

// secretMatches compares a candidate against the shared secret in constant
// time. An empty configured secret never matches.
func (s *Server) secretMatches(candidate string) bool {
	if s.cfg.Secret == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.cfg.Secret)) == 1
}

// validToken verifies a login token's signature and expiry.
func (s *Server) validToken(token string) bool {
	if token == "" {
		return false
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret()), nil
	})
	if err != nil {
		return false
	}
	return parsed.Valid
}

// jwtSecret returns the token signing key, falling back to the shared
// secret when no dedicated key is configured.
func (s *Server) jwtSecret() string {
	if s.secCfg.JWT.Secret != "" {
		return s.secCfg.JWT.Secret
	}
	return s.cfg.Secret
}
