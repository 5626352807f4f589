package validators

import (
	"math"
	"testing"

	"github.com/cloud-ru/sky-financial-go/internal/calculations"
	"github.com/cloud-ru/sky-financial-go/internal/config"
)

func TestValidators(t *testing.T) {
	cfg := config.Default()
	sip := cfg.BoundsFor(calculations.KindSIP)
	tax := cfg.BoundsFor(calculations.KindTax)

	tests := []struct {
		name      string
		validator func(config.Bounds, interface{}) error
		bounds    config.Bounds
		value     interface{}
		wantError bool
	}{
		{
			name:      "valid amount",
			validator: func(b config.Bounds, v interface{}) error { return CheckAmount(b, v.(float64)) },
			bounds:    sip,
			value:     5000.0,
			wantError: false,
		},
		{
			name:      "amount below slider minimum",
			validator: func(b config.Bounds, v interface{}) error { return CheckAmount(b, v.(float64)) },
			bounds:    sip,
			value:     100.0,
			wantError: true,
		},
		{
			name:      "amount not finite",
			validator: func(b config.Bounds, v interface{}) error { return CheckAmount(b, v.(float64)) },
			bounds:    sip,
			value:     math.Inf(1),
			wantError: true,
		},
		{
			name:      "valid rate",
			validator: func(b config.Bounds, v interface{}) error { return CheckRate(b, v.(float64)) },
			bounds:    sip,
			value:     12.0,
			wantError: false,
		},
		{
			name:      "rate too high",
			validator: func(b config.Bounds, v interface{}) error { return CheckRate(b, v.(float64)) },
			bounds:    sip,
			value:     31.0,
			wantError: true,
		},
		{
			name:      "valid years",
			validator: func(b config.Bounds, v interface{}) error { return CheckYears(b, v.(int)) },
			bounds:    sip,
			value:     10,
			wantError: false,
		},
		{
			name:      "invalid years zero",
			validator: func(b config.Bounds, v interface{}) error { return CheckYears(b, v.(int)) },
			bounds:    sip,
			value:     0,
			wantError: true,
		},
		{
			name:      "valid deductions",
			validator: func(b config.Bounds, v interface{}) error { return CheckDeductions(b, v.(float64)) },
			bounds:    tax,
			value:     150000.0,
			wantError: false,
		},
		{
			name:      "negative deductions",
			validator: func(b config.Bounds, v interface{}) error { return CheckDeductions(b, v.(float64)) },
			bounds:    tax,
			value:     -1.0,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validator(tt.bounds, tt.value)
			if (err != nil) != tt.wantError {
				t.Errorf("validator error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestCheckInput(t *testing.T) {
	cfg := config.Default()

	for _, kind := range calculations.Kinds() {
		if err := CheckInput(cfg, kind, calculations.Defaults(kind)); err != nil {
			t.Errorf("defaults for %s rejected: %v", kind, err)
		}
	}

	// для налога ставка и срок не проверяются
	if err := CheckInput(cfg, calculations.KindTax, calculations.Input{Amount: 1200000}); err != nil {
		t.Errorf("tax input rejected: %v", err)
	}

	err := CheckInput(cfg, calculations.KindPPF, calculations.Input{Amount: 100000, Rate: 0, Duration: 51})
	if err == nil {
		t.Fatal("expected error for zero rate and 51 years")
	}
}
