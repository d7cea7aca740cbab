package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Action names an operation guarded by the policy.
type Action string

const (
	ActionReset  Action = "reset_db"
	ActionAsk    Action = "ask"
	ActionVector Action = "vector_data"
)

// PolicyService decides which callers may perform which actions.
type PolicyService struct {
	ResetKeys map[string]bool // keys allowed to rebuild the index (if empty, anyone may)
}

// NewPolicyService creates a PolicyService from a comma-separated key list.
func NewPolicyService(resetKeysStr string) *PolicyService {
	resetKeys := make(map[string]bool)

	if resetKeysStr != "" {
		for _, key := range strings.Split(resetKeysStr, ",") {
			key = strings.TrimSpace(key)
			if key != "" {
				resetKeys[key] = true
			}
		}
	}

	return &PolicyService{ResetKeys: resetKeys}
}

// IsResetAllowed checks whether key may rebuild the index.
func (p *PolicyService) IsResetAllowed(key string) bool {
	// If no reset keys are configured, resets are open
	if len(p.ResetKeys) == 0 {
		return true
	}
	if key == "" {
		return false
	}
	for k := range p.ResetKeys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// IsAllowed checks whether key may perform action.
func (p *PolicyService) IsAllowed(action Action, key string) bool {
	switch action {
	case ActionReset:
		return p.IsResetAllowed(key)
	case ActionAsk, ActionVector:
		// Everyone can query
		return true
	default:
		// Unknown actions are not allowed
		return false
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
