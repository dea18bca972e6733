// Package catalog holds the product list, resolves effective prices against
// operator overrides and builds hosted checkout redirects.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"topcompras/storefront/prices"
)

//go:embed catalog.json
var defaultCatalog []byte

const StatusAvailable = "disponivel"

var (
	ErrUnknownProduct   = errors.New("Produto não encontrado")
	ErrUnknownVariation = errors.New("Variação não encontrada")
)

// Gateway is the hosted payment page of a product
type Gateway struct {
	StoreID     string `json:"storeId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type Variation struct {
	Nome      string   `json:"nome"`
	Preco     float64  `json:"preco"`
	Desconto  int      `json:"desconto,omitempty"`
	Pagamento []string `json:"pagamento,omitempty"`
	Descricao string   `json:"descricao,omitempty"`
	Etiqueta  string   `json:"etiqueta,omitempty"`
	Checkout  *Gateway `json:"checkout,omitempty"`
}

// Product is either priced directly or through its variations
type Product struct {
	Nome      string      `json:"nome"`
	Preco     float64     `json:"preco,omitempty"`
	Desconto  int         `json:"desconto,omitempty"`
	Emoji     string      `json:"emoji,omitempty"`
	Imagem    string      `json:"imagem,omitempty"`
	Descricao string      `json:"descricao,omitempty"`
	Categoria string      `json:"categoria"`
	Status    string      `json:"status,omitempty"`
	Etiqueta  string      `json:"etiqueta,omitempty"`
	Pagamento []string    `json:"pagamento,omitempty"`
	Variacoes []Variation `json:"variacoes,omitempty"`
	Checkout  *Gateway    `json:"checkout,omitempty"`
}

func (p *Product) HasVariations() bool {
	return len(p.Variacoes) > 0
}

// Variation returns the named variation. An empty name selects the first
// one, the storefront's default selection.
func (p *Product) Variation(name string) (*Variation, bool) {
	if !p.HasVariations() {
		return nil, false
	}
	if name == "" {
		return &p.Variacoes[0], true
	}
	for i := range p.Variacoes {
		if p.Variacoes[i].Nome == name {
			return &p.Variacoes[i], true
		}
	}
	return nil, false
}

// SaleName is the sales counter key of a product or one of its variations
func SaleName(product, variation string) string {
	if variation == "" {
		return product
	}
	return product + " - " + variation
}

type Catalog struct {
	Categorias []string  `json:"categorias"`
	Produtos   []Product `json:"produtos"`

	byName map[string]int
	bySale map[string]string // sale name -> category
}

// Parse decodes and indexes a catalog document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c.byName = make(map[string]int, len(c.Produtos))
	c.bySale = make(map[string]string)
	for i, p := range c.Produtos {
		if p.Nome == "" {
			return nil, fmt.Errorf("product %d: name is required", i)
		}
		if _, dup := c.byName[p.Nome]; dup {
			return nil, fmt.Errorf("duplicate product %q", p.Nome)
		}
		if p.Categoria == "" {
			return nil, fmt.Errorf("product %q: category is required", p.Nome)
		}
		if !p.HasVariations() && p.Preco <= 0 {
			return nil, fmt.Errorf("product %q: price or variations required", p.Nome)
		}
		c.byName[p.Nome] = i
		c.bySale[p.Nome] = p.Categoria
		for _, v := range p.Variacoes {
			c.bySale[SaleName(p.Nome, v.Nome)] = p.Categoria
		}
	}
	return &c, nil
}

// Default returns the embedded catalog
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads the catalog at path, or the embedded one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func (c *Catalog) Find(name string) (*Product, bool) {
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return &c.Produtos[i], true
}

// CategoryOf maps a sales counter key (product, or "product - variation")
// to its category
func (c *Catalog) CategoryOf(saleName string) (string, bool) {
	cat, ok := c.bySale[saleName]
	return cat, ok
}

// PriceSource supplies operator overrides keyed by prices.Key
type PriceSource interface {
	All(ctx context.Context) (map[string]prices.Entry, error)
}

// Offer is a product (or variation) with overrides applied
type Offer struct {
	Product   *Product
	Variation *Variation
	Price     float64
	Discount  int
}

// Final is the unit price after discount
func (o Offer) Final() float64 {
	return o.Price * (1 - float64(o.Discount)/100)
}

func (o Offer) VariationName() string {
	if o.Variation == nil {
		return ""
	}
	return o.Variation.Nome
}

// SaleName is the sales counter key of the offer
func (o Offer) SaleName() string {
	return SaleName(o.Product.Nome, o.VariationName())
}

// Gateway returns the payment page of the offer, falling back to def
func (o Offer) Gateway(def Gateway) Gateway {
	if o.Product.Checkout != nil && o.Product.Checkout.CheckoutURL != "" {
		return *o.Product.Checkout
	}
	if o.Variation != nil && o.Variation.Checkout != nil && o.Variation.Checkout.CheckoutURL != "" {
		return *o.Variation.Checkout
	}
	return def
}

// Payment lists the accepted payment methods of the offer
func (o Offer) Payment() []string {
	if o.Variation != nil && len(o.Variation.Pagamento) > 0 {
		return o.Variation.Pagamento
	}
	return o.Product.Pagamento
}

// apply picks the override price when present, and the override discount
// when it is positive
func apply(overrides map[string]prices.Entry, o *Offer) {
	e, ok := overrides[prices.Key(o.Product.Nome, o.VariationName())]
	if !ok {
		return
	}
	o.Price = e.Preco
	if e.Desconto > 0 {
		o.Discount = e.Desconto
	}
}

func offer(p *Product, v *Variation, overrides map[string]prices.Entry) Offer {
	o := Offer{Product: p, Variation: v, Price: p.Preco, Discount: p.Desconto}
	if v != nil {
		o.Price, o.Discount = v.Preco, v.Desconto
	}
	apply(overrides, &o)
	return o
}

// Resolve finds a product and variation and applies the price overrides
func (c *Catalog) Resolve(ctx context.Context, src PriceSource, product, variation string) (Offer, error) {
	p, ok := c.Find(product)
	if !ok {
		return Offer{}, ErrUnknownProduct
	}

	var v *Variation
	if p.HasVariations() {
		if v, ok = p.Variation(variation); !ok {
			return Offer{}, ErrUnknownVariation
		}
	} else if variation != "" {
		return Offer{}, ErrUnknownVariation
	}

	overrides, err := overridesFrom(ctx, src)
	if err != nil {
		return Offer{}, err
	}
	return offer(p, v, overrides), nil
}

func overridesFrom(ctx context.Context, src PriceSource) (map[string]prices.Entry, error) {
	if src == nil {
		return nil, nil
	}
	overrides, err := src.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load price overrides: %w", err)
	}
	return overrides, nil
}
