// Package sales keeps the shared per-product sales counters
package sales

import (
	"context"
	"log"
	"sort"
	"sync"

	"topcompras/storefront"
	"topcompras/storefront/blob"
	"topcompras/waf/metrics"
	"topcompras/waf/sanitize"
)

// DocumentKey is the blob key of the counters document
const DocumentKey = "vendas"

const maxPerSale = 1000

// Adjustment actions accepted by Adjust
const (
	ActionSet      = "set"
	ActionAdd      = "add"
	ActionSubtract = "subtract"
)

// OtherCategory labels sales of names the catalog does not know
const OtherCategory = "outros"

const (
	MsgNameRequired    = "Nome do produto é obrigatório"
	MsgInvalidQuantity = "Quantidade inválida"
	MsgInvalidRanking  = "Ranking inválido"
)

// Result describes a counter after a write
type Result struct {
	Product   string
	Quantity  int
	Total     int
	AllCounts map[string]int
}

// Service serialises read-modify-write cycles on the counters document
type Service struct {
	mu         sync.Mutex
	store      blob.Store
	notify     storefront.Notifier
	categories Categorizer
}

// Categorizer resolves a counter key to a catalog category. Counter names
// come from request bodies, so metrics are labelled by category only.
type Categorizer interface {
	CategoryOf(saleName string) (string, bool)
}

type Option func(*Service)

func WithCategories(c Categorizer) Option {
	return func(s *Service) { s.categories = c }
}

func New(store blob.Store, notify storefront.Notifier, opts ...Option) *Service {
	s := &Service{store: store, notify: notify}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// category is the metrics label for a counter name
func (s *Service) category(name string) string {
	if s.categories != nil {
		if cat, ok := s.categories.CategoryOf(name); ok {
			return cat
		}
	}
	return OtherCategory
}

func (s *Service) load(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	if err := storefront.LoadJSON(ctx, s.store, DocumentKey, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *Service) save(ctx context.Context, counts map[string]int) error {
	if err := storefront.SaveJSON(ctx, s.store, DocumentKey, counts); err != nil {
		return err
	}
	if s.notify != nil {
		s.notify.Notify(storefront.KindSales)
	}
	return nil
}

// All returns every counter and their sum
func (s *Service) All(ctx context.Context) (map[string]int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.load(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return counts, total, nil
}

// Count returns the counter of one product
func (s *Service) Count(ctx context.Context, product string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return counts[product], nil
}

// Register records qty units sold of product. A zero quantity counts as one.
func (s *Service) Register(ctx context.Context, product string, qty int) (Result, error) {
	name := sanitize.Input(product)
	if name == "" {
		return Result{}, storefront.Invalid(MsgNameRequired)
	}
	if qty == 0 {
		qty = 1
	}
	if qty < 1 || qty > maxPerSale {
		return Result{}, storefront.Invalid(MsgInvalidQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.load(ctx)
	if err != nil {
		return Result{}, err
	}
	counts[name] += qty
	if err := s.save(ctx, counts); err != nil {
		return Result{}, err
	}

	metrics.SalesTotal.WithLabelValues(s.category(name)).Add(float64(qty))
	log.Printf("[SALES] %s x%d, total %d", name, qty, counts[name])
	return Result{Product: name, Quantity: qty, Total: counts[name], AllCounts: counts}, nil
}

// Adjust edits a counter directly. qty is the raw request value: set uses
// it as is (unset means 0), add and subtract default to 1. Subtraction
// never goes below zero and an unknown action leaves the counter as it was.
func (s *Service) Adjust(ctx context.Context, product string, qty storefront.FlexNumber, action string) (Result, error) {
	name := sanitize.Input(product)
	if name == "" {
		return Result{}, storefront.Invalid(MsgNameRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.load(ctx)
	if err != nil {
		return Result{}, err
	}

	cur := counts[name]
	switch action {
	case ActionSet:
		cur = qty.Int(0)
		if cur < 0 {
			cur = 0
		}
	case ActionAdd:
		cur += qty.Int(1)
	case ActionSubtract:
		cur -= qty.Int(1)
	}
	if cur < 0 {
		cur = 0
	}
	counts[name] = cur

	if err := s.save(ctx, counts); err != nil {
		return Result{}, err
	}
	log.Printf("[SALES] adjusted %s (%s) = %d", name, action, cur)
	return Result{Product: name, Total: cur, AllCounts: counts}, nil
}

// Rank is one entry of the best sellers list
type Rank struct {
	Nome       string `json:"nome"`
	Quantidade int    `json:"quantidade"`
}

// Ranking orders counts by quantity, then name, keeping at most limit
// entries (all of them when limit <= 0)
func Ranking(counts map[string]int, limit int) []Rank {
	out := make([]Rank, 0, len(counts))
	for name, n := range counts {
		out = append(out, Rank{Nome: name, Quantidade: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantidade != out[j].Quantidade {
			return out[i].Quantidade > out[j].Quantidade
		}
		return out[i].Nome < out[j].Nome
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
