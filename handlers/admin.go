package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"topcompras/waf/guard"
	"topcompras/waf/respond"
	"topcompras/waf/sanitize"
)

type banRequest struct {
	Identity string `json:"identity"`
	Reason   string `json:"reason"`
	// Duration is a Go duration ("24h"); empty bans until removed
	Duration string `json:"duration"`
}

// AdminGuard serves /api/admin/guard. Mount it behind an admin check.
//
//	GET     guard stats, live blocks and operator rules
//	GET     ?identity=  what the guard knows about one identity
//	POST    {identity, reason, duration}  manual ban
//	DELETE  ?identity=  lift the automatic block and any manual ban
func (a *API) AdminGuard(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if a.Guard == nil {
		respond.Error(w, http.StatusServiceUnavailable, "Guard indisponível", "")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.guardStatus(w, r)
	case http.MethodPost:
		a.banIdentity(w, r)
	case http.MethodDelete:
		a.releaseIdentity(w, r)
	default:
		respond.MethodNotAllowed(w)
	}
}

func (a *API) guardStatus(w http.ResponseWriter, r *http.Request) {
	if id := strings.TrimSpace(r.URL.Query().Get("identity")); id != "" {
		info := a.Guard.IdentityInfo(id)
		if a.Rules != nil {
			info["whitelisted"] = a.Rules.Whitelisted(id)
			if reason, banned := a.Rules.Banned(id); banned {
				info["banned"] = reason
			}
		}
		respond.JSON(w, http.StatusOK, map[string]interface{}{
			"identity": id,
			"info":     info,
		})
		return
	}

	body := map[string]interface{}{
		"stats":     a.Guard.Stats(),
		"blocked":   a.Guard.BlockedIdentities(),
		"timestamp": a.timestamp(),
	}
	if a.Rules != nil {
		body["rules"] = a.Rules.Stats()
		body["bans"] = a.Rules.Bans()
		body["whitelist"] = a.Rules.Whitelist()
	}
	respond.JSON(w, http.StatusOK, body)
}

func (a *API) banIdentity(w http.ResponseWriter, r *http.Request) {
	if a.Rules == nil {
		respond.Error(w, http.StatusNotImplemented, "Regras manuais desabilitadas", "")
		return
	}
	var req banRequest
	if !decode(w, r, &req) {
		return
	}
	id := strings.TrimSpace(req.Identity)
	if id == "" {
		respond.Error(w, http.StatusBadRequest, "Identidade é obrigatória", "")
		return
	}

	var dur time.Duration
	if req.Duration != "" {
		d, err := time.ParseDuration(req.Duration)
		if err != nil || d < 0 {
			respond.Error(w, http.StatusBadRequest, "Duração inválida", "")
			return
		}
		dur = d
	}

	rule, err := a.Rules.Ban(id, sanitize.Input(req.Reason), "admin:"+guard.IdentityFromRequest(r), dur)
	if err != nil {
		respond.Internal(w, err)
		return
	}
	log.Printf("[ADMIN] banned %s (%s)", id, rule.Reason)
	respond.JSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"ban":     rule,
	})
}

func (a *API) releaseIdentity(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("identity"))
	if id == "" {
		respond.Error(w, http.StatusBadRequest, "Identidade é obrigatória", "")
		return
	}

	unblocked := a.Guard.Unblock(id)
	unbanned := false
	if a.Rules != nil {
		var err error
		if unbanned, err = a.Rules.Unban(id); err != nil {
			respond.Internal(w, err)
			return
		}
	}
	if !unblocked && !unbanned {
		respond.Error(w, http.StatusNotFound, "Identidade não está bloqueada", "")
		return
	}

	log.Printf("[ADMIN] released %s (unblocked=%v unbanned=%v)", id, unblocked, unbanned)
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"identity":  id,
		"unblocked": unblocked,
		"unbanned":  unbanned,
	})
}
