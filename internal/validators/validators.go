package validators

import (
	"errors"
	"fmt"

	"github.com/cloud-ru/sky-financial-go/internal/calculations"
	"github.com/cloud-ru/sky-financial-go/internal/config"
	"github.com/cloud-ru/sky-financial-go/pkg/utils"
)

// ValidateNumberRange проверяет, что число конечно и лежит в диапазоне
func ValidateNumberRange(name string, value float64, minInclusive, maxInclusive float64) error {
	if !utils.IsFinite(value) {
		return fmt.Errorf("%s: значение не является конечным числом", name)
	}
	if value < minInclusive {
		return fmt.Errorf("%s: значение должно быть ≥ %g", name, minInclusive)
	}
	if value > maxInclusive {
		return fmt.Errorf("%s: значение слишком велико (>%g)", name, maxInclusive)
	}
	return nil
}

// ValidateIntRange проверяет, что целое число в допустимом диапазоне
func ValidateIntRange(name string, value int, minInclusive, maxInclusive int) error {
	if value < minInclusive || value > maxInclusive {
		return fmt.Errorf("%s: значение должно быть в диапазоне [%d; %d]", name, minInclusive, maxInclusive)
	}
	return nil
}

// CheckAmount проверяет основную сумму: взнос, вложение, кредит или годовой доход
func CheckAmount(b config.Bounds, amount float64) error {
	return ValidateNumberRange("amount", amount, b.MinAmount, b.MaxAmount)
}

// CheckRate проверяет процентную ставку
func CheckRate(b config.Bounds, rate float64) error {
	return ValidateNumberRange("annual_rate_percent", rate, b.MinRate, b.MaxRate)
}

// CheckYears проверяет срок в годах
func CheckYears(b config.Bounds, years int) error {
	return ValidateIntRange("years", years, b.MinYears, b.MaxYears)
}

// CheckDeductions проверяет вычеты старого режима
func CheckDeductions(b config.Bounds, deductions float64) error {
	return ValidateNumberRange("deductions", deductions, 0.0, b.MaxDeductions)
}

// CheckInput проверяет все поля, значимые для калькулятора kind.
// Возвращает все найденные ошибки сразу.
func CheckInput(cfg *config.Config, kind calculations.Kind, in calculations.Input) error {
	b := cfg.BoundsFor(kind)

	errs := []error{CheckAmount(b, in.Amount)}
	if kind == calculations.KindTax {
		errs = append(errs, CheckDeductions(b, in.Deductions))
	} else {
		errs = append(errs, CheckRate(b, in.Rate), CheckYears(b, in.Duration))
	}
	return errors.Join(errs...)
}
