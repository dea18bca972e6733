package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"topcompras/storefront/blob"
)

func TestFlexNumber(t *testing.T) {
	tests := []struct {
		in      string
		set     bool
		present bool
		value   float64
	}{
		{`{"n":3}`, true, true, 3},
		{`{"n":"7"}`, true, true, 7},
		{`{"n":" 2.5 "}`, true, true, 2.5},
		{`{"n":"abc"}`, false, true, 0},
		{`{"n":null}`, false, true, 0},
		{`{}`, false, false, 0},
	}
	for _, tt := range tests {
		var v struct {
			N FlexNumber `json:"n"`
		}
		if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if v.N.Set != tt.set || v.N.Value != tt.value {
			t.Fatalf("%s: expected (%v, %v), got (%v, %v)", tt.in, tt.set, tt.value, v.N.Set, v.N.Value)
		}
		if v.N.Present != tt.present {
			t.Fatalf("%s: expected present %v, got %v", tt.in, tt.present, v.N.Present)
		}
	}
}

func TestFlexNumberInt(t *testing.T) {
	if got := (FlexNumber{}).Int(1); got != 1 {
		t.Fatalf("expected default 1, got %d", got)
	}
	if got := (FlexNumber{Value: 0, Set: true}).Int(1); got != 1 {
		t.Fatalf("expected zero to fall back to default, got %d", got)
	}
	if got := (FlexNumber{Value: 3.9, Set: true}).Int(1); got != 3 {
		t.Fatalf("expected truncation to 3, got %d", got)
	}
	if got := (FlexNumber{Value: -2, Set: true}).Int(1); got != -2 {
		t.Fatalf("expected -2, got %d", got)
	}
}

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"user-1","b":1712345678901}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != "user-1" || v.B != "1712345678901" {
		t.Fatalf("unexpected values %q %q", v.A, v.B)
	}
}

func TestValidationError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Invalid("Quantidade inválida"))
	ve, ok := IsValidation(err)
	if !ok || ve.Message != "Quantidade inválida" {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := IsValidation(errors.New("boom")); ok {
		t.Fatal("expected plain error not to be a validation error")
	}
}

func TestLoadSaveJSON(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()

	m := map[string]int{"x": 1}
	if err := LoadJSON(ctx, store, "vendas", &m); err != nil {
		t.Fatalf("LoadJSON missing: %v", err)
	}
	if m["x"] != 1 {
		t.Fatal("expected missing key to leave value untouched")
	}

	if err := SaveJSON(ctx, store, "vendas", map[string]int{"Netflix": 4}); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	var got map[string]int
	if err := LoadJSON(ctx, store, "vendas", &got); err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if got["Netflix"] != 4 {
		t.Fatalf("expected 4, got %v", got)
	}

	_ = store.Put(ctx, "broken", []byte("{"))
	if err := LoadJSON(ctx, store, "broken", &got); err == nil {
		t.Fatal("expected decode error")
	}
}
