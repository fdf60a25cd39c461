// Package auth is the bearer-token gate in front of the admin API.
package auth

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/campus-feed/internal/common"
)

// Role decides what an identity may do.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// AllowWrite is the write policy: editors and admins may change events,
// viewers may only read.
func AllowWrite(id common.Identity) bool {
	r := Role(id.Role)
	return r == RoleEditor || r == RoleAdmin
}

type tokenEntry struct {
	token    []byte
	identity common.Identity
}

// Gate verifies bearer tokens against a static list.
type Gate struct {
	tokens   []tokenEntry
	disabled bool
	logger   *slog.Logger
}

// NewGate parses cfg.Tokens, a comma separated list of name:role:token.
func NewGate(cfg common.AuthConfig, logger *slog.Logger) (*Gate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{disabled: cfg.Disabled, logger: logger}
	for _, raw := range strings.Split(cfg.Tokens, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, common.NewAppError("INVALID_CONFIG", "auth token entries must be name:role:token", nil)
		}
		role := Role(strings.ToLower(parts[1]))
		switch role {
		case RoleViewer, RoleEditor, RoleAdmin:
		default:
			return nil, common.NewAppError("INVALID_CONFIG", fmt.Sprintf("unknown role %q for %s", parts[1], parts[0]), nil)
		}
		g.tokens = append(g.tokens, tokenEntry{token: []byte(parts[2]), identity: common.Identity{Name: parts[0], Role: string(role)}})
	}
	if len(g.tokens) == 0 && !g.disabled {
		logger.Warn("auth.no_tokens", "hint", "set AUTH_TOKENS or AUTH_DISABLED=true; every request will be rejected")
	}
	if g.disabled {
		logger.Warn("auth.disabled", "hint", "all requests run as an anonymous editor")
	}
	return g, nil
}

// Verify resolves a raw token. It reports false for unknown tokens.
func (g *Gate) Verify(token string) (common.Identity, bool) {
	if g.disabled {
		return common.Identity{Name: "anonymous", Role: string(RoleEditor)}, true
	}
	if token == "" {
		return common.Identity{}, false
	}
	for _, t := range g.tokens {
		if subtle.ConstantTimeCompare(t.token, []byte(token)) == 1 {
			return t.identity, true
		}
	}
	return common.Identity{}, false
}

// FromRequest reads the Authorization bearer token of r.
func (g *Gate) FromRequest(r *http.Request) (common.Identity, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		token, _ = strings.CutPrefix(h, "bearer ")
	}
	return g.Verify(strings.TrimSpace(token))
}
