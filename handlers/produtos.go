package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"topcompras/storefront"
	"topcompras/storefront/catalog"
	"topcompras/waf/metrics"
	"topcompras/waf/respond"
)

// Produtos serves GET /api/produtos?categoria=
func (a *API) Produtos(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w)
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("categoria"))

	counts, _, err := a.Sales.All(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	listing, err := a.Catalog.List(r.Context(), a.Prices, category, counts)
	if err != nil {
		fail(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, listing)
}

// CheckoutRedirect serves GET /checkout?produto=&variacao=&quantidade=. It counts
// the sale and redirects to the hosted payment page.
func (a *API) CheckoutRedirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		respond.MethodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	product, variation := q.Get("produto"), q.Get("variacao")

	qty := 1
	if raw := strings.TrimSpace(q.Get("quantidade")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, catalog.MsgInvalidQuantity, "")
			return
		}
		qty = n
	}

	order, err := a.Checkout.NewOrder(r.Context(), product, variation, qty)
	if err != nil {
		fail(w, err)
		return
	}

	if _, err := a.Sales.Register(r.Context(), order.Offer.SaleName(), qty); err != nil {
		// the customer still gets to pay; the counter is informational
		if _, ok := storefront.IsValidation(err); !ok {
			log.Printf("[CHECKOUT] could not count sale for %s: %v", order.ID, err)
		}
	}

	metrics.CheckoutRedirects.WithLabelValues(order.Offer.Product.Categoria).Inc()
	log.Printf("[CHECKOUT] %s %s amount=%d", order.ID, order.Description, order.Amount)
	http.Redirect(w, r, a.Checkout.URL(order), http.StatusFound)
}
