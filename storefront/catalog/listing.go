package catalog

import (
	"context"
	"math"

	"topcompras/storefront/prices"
)

// VariationItem is a variation as listed to customers
type VariationItem struct {
	Nome       string   `json:"nome"`
	Preco      float64  `json:"preco"`
	Desconto   int      `json:"desconto"`
	PrecoFinal float64  `json:"precoFinal"`
	Pagamento  []string `json:"pagamento,omitempty"`
	Descricao  string   `json:"descricao,omitempty"`
	Etiqueta   string   `json:"etiqueta,omitempty"`
	Vendas     int      `json:"vendas"`
}

// Item is a product as listed to customers. For products with variations
// the price fields describe the cheapest one.
type Item struct {
	Nome       string          `json:"nome"`
	Emoji      string          `json:"emoji,omitempty"`
	Imagem     string          `json:"imagem,omitempty"`
	Descricao  string          `json:"descricao,omitempty"`
	Categoria  string          `json:"categoria"`
	Status     string          `json:"status,omitempty"`
	Etiqueta   string          `json:"etiqueta,omitempty"`
	Pagamento  []string        `json:"pagamento,omitempty"`
	Preco      float64         `json:"preco"`
	Desconto   int             `json:"desconto"`
	PrecoFinal float64         `json:"precoFinal"`
	Variacoes  []VariationItem `json:"variacoes,omitempty"`
	Vendas     int             `json:"vendas"`
}

// Listing is the /api/produtos payload
type Listing struct {
	Categorias         []string       `json:"categorias"`
	Produtos           []Item         `json:"produtos"`
	VendasPorCategoria map[string]int `json:"vendasPorCategoria"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// List builds the listing for category ("" or "Todos" for everything), with
// effective prices and sales counts taken from counts
func (c *Catalog) List(ctx context.Context, src PriceSource, category string, counts map[string]int) (Listing, error) {
	overrides, err := overridesFrom(ctx, src)
	if err != nil {
		return Listing{}, err
	}

	out := Listing{
		Categorias:         c.Categorias,
		Produtos:           []Item{},
		VendasPorCategoria: c.SalesByCategory(counts),
	}
	for i := range c.Produtos {
		p := &c.Produtos[i]
		if category != "" && category != "Todos" && p.Categoria != category {
			continue
		}
		out.Produtos = append(out.Produtos, item(p, overrides, counts))
	}
	return out, nil
}

func item(p *Product, overrides map[string]prices.Entry, counts map[string]int) Item {
	it := Item{
		Nome:      p.Nome,
		Emoji:     p.Emoji,
		Imagem:    p.Imagem,
		Descricao: p.Descricao,
		Categoria: p.Categoria,
		Status:    p.Status,
		Etiqueta:  p.Etiqueta,
		Pagamento: p.Pagamento,
	}

	if !p.HasVariations() {
		o := offer(p, nil, overrides)
		it.Preco, it.Desconto, it.PrecoFinal = o.Price, o.Discount, round2(o.Final())
		it.Vendas = counts[p.Nome]
		return it
	}

	var cheapest *Offer
	for i := range p.Variacoes {
		v := &p.Variacoes[i]
		o := offer(p, v, overrides)
		sold := counts[o.SaleName()]
		it.Vendas += sold
		it.Variacoes = append(it.Variacoes, VariationItem{
			Nome:       v.Nome,
			Preco:      o.Price,
			Desconto:   o.Discount,
			PrecoFinal: round2(o.Final()),
			Pagamento:  o.Payment(),
			Descricao:  v.Descricao,
			Etiqueta:   v.Etiqueta,
			Vendas:     sold,
		})
		if cheapest == nil || o.Price < cheapest.Price {
			cheapest = &o
		}
	}
	it.Preco, it.Desconto, it.PrecoFinal = cheapest.Price, cheapest.Discount, round2(cheapest.Final())
	if len(it.Pagamento) == 0 {
		it.Pagamento = cheapest.Payment()
	}
	return it
}

// SalesByCategory folds per-product counters into category totals. Counters
// that match no product are ignored.
func (c *Catalog) SalesByCategory(counts map[string]int) map[string]int {
	names := make(map[string]string, len(c.Produtos))
	for _, p := range c.Produtos {
		names[p.Nome] = p.Categoria
		for _, v := range p.Variacoes {
			names[SaleName(p.Nome, v.Nome)] = p.Categoria
		}
	}

	out := make(map[string]int)
	for name, n := range counts {
		if cat, ok := names[name]; ok {
			out[cat] += n
		}
	}
	return out
}
