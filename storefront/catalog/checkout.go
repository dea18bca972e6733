package catalog

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"time"

	"topcompras/storefront"
)

const (
	DefaultCheckoutURL = "https://checkout.infinitepay.io/drip_duke/CGO5dGsV3"
	DefaultStoreID     = "$drip_duke"

	Currency      = "BRL"
	CustomerName  = "Cliente TOP COMPRAS"
	CustomerEmail = "cliente@topcompras.com"

	MaxQuantity = 1000

	MsgInvalidQuantity = "Quantidade inválida"
)

type CheckoutConfig struct {
	Default Gateway
	// PublicURL is the storefront origin the payment page returns to
	PublicURL string
}

// Order is a resolved purchase ready to be sent to the payment page
type Order struct {
	ID          string
	Offer       Offer
	Quantity    int
	Amount      int64 // cents
	Description string
	Gateway     Gateway
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewOrderID returns ORD_<unix ms>_<9 random base36 chars>
func NewOrderID(now time.Time) string {
	var b strings.Builder
	b.WriteString("ORD_")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < 9; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}

// Checkout turns catalog selections into orders
type Checkout struct {
	catalog *Catalog
	prices  PriceSource
	config  CheckoutConfig
	now     func() time.Time
}

func NewCheckout(c *Catalog, src PriceSource, cfg CheckoutConfig) *Checkout {
	if cfg.Default.CheckoutURL == "" {
		cfg.Default.CheckoutURL = DefaultCheckoutURL
	}
	if cfg.Default.StoreID == "" {
		cfg.Default.StoreID = DefaultStoreID
	}
	return &Checkout{catalog: c, prices: src, config: cfg, now: time.Now}
}

// NewOrder resolves the selection and prices qty units of it
func (c *Checkout) NewOrder(ctx context.Context, product, variation string, qty int) (Order, error) {
	if qty < 1 || qty > MaxQuantity {
		return Order{}, storefront.Invalid(MsgInvalidQuantity)
	}
	o, err := c.catalog.Resolve(ctx, c.prices, product, variation)
	if err != nil {
		return Order{}, err
	}

	total := o.Final() * float64(qty)
	return Order{
		ID:          NewOrderID(c.now()),
		Offer:       o,
		Quantity:    qty,
		Amount:      int64(math.Round(total * 100)),
		Description: fmt.Sprintf("%s (x%d)", o.SaleName(), qty),
		Gateway:     o.Gateway(c.config.Default),
	}, nil
}

// URL renders the redirect for order
func (c *Checkout) URL(order Order) string {
	return CheckoutURL(order, c.config.PublicURL)
}

// CheckoutURL renders the hosted payment page URL of order. The return URL
// points back to publicURL/sucesso.html.
func CheckoutURL(order Order, publicURL string) string {
	amount := strconv.FormatInt(order.Amount, 10)
	returnURL := strings.TrimRight(publicURL, "/") + "/sucesso.html?order_id=" + order.ID + "&amount=" + amount

	q := url.Values{}
	q.Set("order_id", order.ID)
	q.Set("amount", amount)
	q.Set("currency", Currency)
	q.Set("description", order.Description)
	q.Set("customer_name", CustomerName)
	q.Set("customer_email", CustomerEmail)
	q.Set("return_url", returnURL)
	q.Set("metadata_product", order.Description)
	q.Set("metadata_category", order.Offer.Product.Categoria)

	sep := "?"
	if strings.Contains(order.Gateway.CheckoutURL, "?") {
		sep = "&"
	}
	return order.Gateway.CheckoutURL + sep + q.Encode()
}
