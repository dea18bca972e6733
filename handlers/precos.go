package handlers

import (
	"net/http"

	"topcompras/storefront"
	"topcompras/storefront/prices"
	"topcompras/waf/respond"
)

type priceRequest struct {
	ProdutoNome  string                `json:"produtoNome"`
	VariacaoNome string                `json:"variacaoNome"`
	Preco        storefront.FlexNumber `json:"preco"`
	Desconto     storefront.FlexNumber `json:"desconto"`
}

// Precos serves /api/precos. Writes need an admin session.
func (a *API) Precos(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		all, err := a.Prices.All(r.Context())
		if err != nil {
			fail(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]interface{}{
			"precos":    all,
			"timestamp": a.timestamp(),
		})
	case http.MethodPost:
		if a.requireAdmin(w, r) {
			a.setPrice(w, r, http.StatusCreated)
		}
	case http.MethodPut:
		if a.requireAdmin(w, r) {
			a.setPrice(w, r, http.StatusOK)
		}
	default:
		respond.MethodNotAllowed(w)
	}
}

func (a *API) setPrice(w http.ResponseWriter, r *http.Request, status int) {
	var req priceRequest
	if !decode(w, r, &req) {
		return
	}
	a.inspect(r, req.ProdutoNome, req.VariacaoNome)

	res, err := a.Prices.Set(r.Context(), prices.Input{
		Product:   req.ProdutoNome,
		Variation: req.VariacaoNome,
		Price:     req.Preco,
		Discount:  req.Desconto,
	})
	if err != nil {
		fail(w, err)
		return
	}
	respond.JSON(w, status, map[string]interface{}{
		"success":     true,
		"chave":       res.Key,
		"dados":       res.Entry,
		"todosPrecos": res.All,
	})
}
