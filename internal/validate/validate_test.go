package validate

import (
	"testing"

	"restoran-kpi/internal/apperr"

	"github.com/shopspring/decimal"
)

type sample struct {
	Name    string           `json:"name" validate:"required"`
	Amount  decimal.Decimal  `json:"amount" validate:"gte=0"`
	Maybe   *decimal.Decimal `json:"maybe" validate:"omitempty,gte=0"`
	Ignored string           `json:"-"`
}

func TestStruct(t *testing.T) {
	neg := decimal.NewFromInt(-1)

	tests := []struct {
		name string
		in   sample
		want map[string]string
	}{
		{"valid", sample{Name: "a", Amount: decimal.NewFromInt(5)}, nil},
		{"missing name", sample{Amount: decimal.Zero}, map[string]string{"name": "required"}},
		{"negative amount", sample{Name: "a", Amount: neg}, map[string]string{"amount": "gte"}},
		{"negative pointer", sample{Name: "a", Maybe: &neg}, map[string]string{"maybe": "gte"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
			ae := err.(*apperr.Error)
			got := ae.Detail.(map[string]string)
			for k, tag := range tt.want {
				if got[k] != tag {
					t.Errorf("field %s: got %q, want %q (all: %v)", k, got[k], tag, got)
				}
			}
		})
	}
}

type inner struct {
	Warning decimal.Decimal `json:"warning" validate:"lte=100"`
}

type outer struct {
	Labour inner `json:"labour_cost_percent"`
}

func TestStructNestedFieldPath(t *testing.T) {
	err := Struct(outer{Labour: inner{Warning: decimal.NewFromInt(120)}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	detail := err.(*apperr.Error).Detail.(map[string]string)
	if detail["labour_cost_percent.warning"] != "lte" {
		t.Fatalf("detail = %v", detail)
	}
}
