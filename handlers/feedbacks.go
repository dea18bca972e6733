package handlers

import (
	"net/http"

	"topcompras/storefront"
	"topcompras/storefront/feedback"
	"topcompras/waf/respond"
)

type feedbackRequest struct {
	ID    storefront.FlexNumber `json:"id"`
	Nome  string                `json:"nome"`
	Texto string                `json:"texto"`
	Email string                `json:"email"`
	Data  string                `json:"data"`
	Hora  string                `json:"hora"`
}

type reactionRequest struct {
	FeedbackID storefront.FlexNumber `json:"feedbackId"`
	UsuarioID  storefront.FlexString `json:"usuarioId"`
	Acao       string                `json:"acao"`
}

// Feedbacks serves /api/feedbacks. Deleting needs an admin session.
func (a *API) Feedbacks(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := a.Feedback.All(r.Context())
		if err != nil {
			fail(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]interface{}{
			"feedbacks": list,
			"timestamp": a.timestamp(),
		})
	case http.MethodPost:
		a.postFeedback(w, r)
	case http.MethodPut:
		a.reactFeedback(w, r)
	case http.MethodDelete:
		if a.requireAdmin(w, r) {
			a.deleteFeedback(w, r)
		}
	default:
		respond.MethodNotAllowed(w)
	}
}

func (a *API) postFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decode(w, r, &req) {
		return
	}
	a.inspect(r, req.Nome, req.Texto, req.Email)

	fb, total, err := a.Feedback.Add(r.Context(), feedback.Input{
		ID:    req.ID,
		Nome:  req.Nome,
		Texto: req.Texto,
		Email: req.Email,
		Data:  req.Data,
		Hora:  req.Hora,
	})
	if err != nil {
		fail(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"feedback": fb,
		"total":    total,
	})
}

func (a *API) reactFeedback(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.FeedbackID.Set {
		fail(w, feedback.ErrNotFound)
		return
	}

	fb, err := a.Feedback.React(r.Context(), int64(req.FeedbackID.Value), string(req.UsuarioID), req.Acao)
	if err != nil {
		fail(w, err)
		return
	}
	action := "liked"
	if req.Acao == feedback.ActionUnlike {
		action = "unliked"
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"feedback": fb,
		"action":   action,
	})
}

func (a *API) deleteFeedback(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.FeedbackID.Set {
		respond.Error(w, http.StatusBadRequest, feedback.MsgIDRequired, "")
		return
	}

	id := int64(req.FeedbackID.Value)
	total, err := a.Feedback.Delete(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Feedback deletado com sucesso",
		"feedbackId": id,
		"total":      total,
	})
}
