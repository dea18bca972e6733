// Package prices stores operator price and discount overrides keyed by
// product, or product and variation
package prices

import (
	"context"
	"log"
	"strings"
	"sync"

	"topcompras/storefront"
	"topcompras/storefront/blob"
	"topcompras/waf/sanitize"
)

// DocumentKey is the blob key of the overrides document
const DocumentKey = "precos"

// KeySeparator joins product and variation names in a price key
const KeySeparator = "||"

const (
	MsgRequired        = "Nome do produto e preço são obrigatórios"
	MsgInvalidPrice    = "Preço inválido"
	MsgInvalidDiscount = "Desconto deve estar entre 0 e 100%"
)

// Entry is one override. Desconto is a whole percentage.
type Entry struct {
	Preco    float64 `json:"preco"`
	Desconto int     `json:"desconto"`
}

// Input is a price write as the client sends it
type Input struct {
	Product   string
	Variation string
	Price     storefront.FlexNumber
	Discount  storefront.FlexNumber
}

type Result struct {
	Key   string
	Entry Entry
	All   map[string]Entry
}

// Key returns the override key for a product and optional variation
func Key(product, variation string) string {
	if variation == "" {
		return product
	}
	return product + KeySeparator + variation
}

// SplitKey is the inverse of Key
func SplitKey(key string) (product, variation string) {
	product, variation, _ = strings.Cut(key, KeySeparator)
	return product, variation
}

type Service struct {
	mu     sync.Mutex
	store  blob.Store
	notify storefront.Notifier
}

func New(store blob.Store, notify storefront.Notifier) *Service {
	return &Service{store: store, notify: notify}
}

func (s *Service) load(ctx context.Context) (map[string]Entry, error) {
	all := make(map[string]Entry)
	if err := storefront.LoadJSON(ctx, s.store, DocumentKey, &all); err != nil {
		return nil, err
	}
	return all, nil
}

// All returns every override
func (s *Service) All(ctx context.Context) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func validate(in Input) (string, Entry, error) {
	name := sanitize.Input(in.Product)
	if name == "" || !in.Price.Present {
		return "", Entry{}, storefront.Invalid(MsgRequired)
	}
	if !in.Price.Set || in.Price.Value < 0 {
		return "", Entry{}, storefront.Invalid(MsgInvalidPrice)
	}
	discount := in.Discount.Int(0)
	if discount < 0 || discount > 100 {
		return "", Entry{}, storefront.Invalid(MsgInvalidDiscount)
	}
	key := Key(name, sanitize.Input(in.Variation))
	return key, Entry{Preco: in.Price.Value, Desconto: discount}, nil
}

// Set validates and stores an override, replacing any previous one
func (s *Service) Set(ctx context.Context, in Input) (Result, error) {
	key, entry, err := validate(in)
	if err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return Result{}, err
	}
	all[key] = entry
	if err := storefront.SaveJSON(ctx, s.store, DocumentKey, all); err != nil {
		return Result{}, err
	}
	if s.notify != nil {
		s.notify.Notify(storefront.KindPrices)
	}

	log.Printf("[PRICES] %s = R$ %.2f (%d%% off)", key, entry.Preco, entry.Desconto)
	return Result{Key: key, Entry: entry, All: all}, nil
}
