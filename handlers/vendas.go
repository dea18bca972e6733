package handlers

import (
	"net/http"
	"strconv"

	"topcompras/storefront"
	"topcompras/storefront/sales"
	"topcompras/waf/respond"
)

type saleRequest struct {
	ProdutoNome string                `json:"produtoNome"`
	Quantidade  storefront.FlexNumber `json:"quantidade"`
	Acao        string                `json:"acao"`
}

// Vendas serves /api/vendas
func (a *API) Vendas(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.listSales(w, r)
	case http.MethodPost:
		a.registerSale(w, r)
	case http.MethodPut:
		if a.requireAdmin(w, r) {
			a.adjustSale(w, r)
		}
	default:
		respond.MethodNotAllowed(w)
	}
}

func (a *API) listSales(w http.ResponseWriter, r *http.Request) {
	counts, total, err := a.Sales.All(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	body := map[string]interface{}{
		"vendas":    counts,
		"total":     total,
		"timestamp": a.timestamp(),
	}
	if raw := r.URL.Query().Get("ranking"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respond.Error(w, http.StatusBadRequest, sales.MsgInvalidRanking, "")
			return
		}
		body["ranking"] = sales.Ranking(counts, limit)
	}
	respond.JSON(w, http.StatusOK, body)
}

func (a *API) registerSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !decode(w, r, &req) {
		return
	}
	a.inspect(r, req.ProdutoNome)

	res, err := a.Sales.Register(r.Context(), req.ProdutoNome, req.Quantidade.Int(1))
	if err != nil {
		fail(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"produtoNome": res.Product,
		"quantidade":  res.Quantity,
		"totalVendas": res.Total,
		"todasVendas": res.AllCounts,
	})
}

func (a *API) adjustSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !decode(w, r, &req) {
		return
	}
	a.inspect(r, req.ProdutoNome, req.Acao)

	res, err := a.Sales.Adjust(r.Context(), req.ProdutoNome, req.Quantidade, req.Acao)
	if err != nil {
		fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"produtoNome": res.Product,
		"totalVendas": res.Total,
		"todasVendas": res.AllCounts,
	})
}
