package calculations

import (
	"github.com/shopspring/decimal"
)

// TaxBracket - ставка для дохода в полуинтервале (Lower, Upper].
// Нулевой Upper означает, что у ступени нет верхней границы.
type TaxBracket struct {
	Lower decimal.Decimal
	Upper decimal.Decimal
	Rate  decimal.Decimal
}

// Regime описывает налоговый режим: шкалу, стандартный вычет и правила скидки
type Regime struct {
	Name              string
	StandardDeduction decimal.Decimal
	// AllowsDeductions - учитываются ли вычеты, введенные пользователем (80C, 80D и т.п.)
	AllowsDeductions bool
	Brackets         []TaxBracket
	// RebateLimit - налогооблагаемый доход, до которого налог полностью списывается
	RebateLimit decimal.Decimal
	// MarginalRelief ограничивает налог превышением дохода над RebateLimit
	MarginalRelief bool
}

var cessRate = decimal.NewFromFloat(0.04)

// NewRegime - новый режим (FY 2024-25)
var NewRegime = Regime{
	Name:              "NEW",
	StandardDeduction: decimal.NewFromInt(75000),
	AllowsDeductions:  false,
	Brackets: []TaxBracket{
		{decimal.Zero, decimal.NewFromInt(300000), decimal.Zero},
		{decimal.NewFromInt(300000), decimal.NewFromInt(700000), decimal.NewFromFloat(0.05)},
		{decimal.NewFromInt(700000), decimal.NewFromInt(1000000), decimal.NewFromFloat(0.10)},
		{decimal.NewFromInt(1000000), decimal.NewFromInt(1200000), decimal.NewFromFloat(0.15)},
		{decimal.NewFromInt(1200000), decimal.NewFromInt(1500000), decimal.NewFromFloat(0.20)},
		{decimal.NewFromInt(1500000), decimal.Zero, decimal.NewFromFloat(0.30)},
	},
	RebateLimit:    decimal.NewFromInt(700000),
	MarginalRelief: true,
}

// OldRegime - старый режим
var OldRegime = Regime{
	Name:              "OLD",
	StandardDeduction: decimal.NewFromInt(50000),
	AllowsDeductions:  true,
	Brackets: []TaxBracket{
		{decimal.Zero, decimal.NewFromInt(250000), decimal.Zero},
		{decimal.NewFromInt(250000), decimal.NewFromInt(500000), decimal.NewFromFloat(0.05)},
		{decimal.NewFromInt(500000), decimal.NewFromInt(1000000), decimal.NewFromFloat(0.20)},
		{decimal.NewFromInt(1000000), decimal.Zero, decimal.NewFromFloat(0.30)},
	},
	RebateLimit:    decimal.NewFromInt(500000),
	MarginalRelief: false,
}

// TaxLiability возвращает налог к уплате с учетом скидки 87A и сбора 4%,
// округленный до целой рупии
func TaxLiability(taxableIncome float64, regime Regime) int64 {
	income := decimal.NewFromFloat(taxableIncome)

	if len(regime.Brackets) == 0 || income.LessThanOrEqual(regime.Brackets[0].Upper) {
		return 0
	}

	tax := slabTax(income, regime.Brackets)

	if income.LessThanOrEqual(regime.RebateLimit) {
		tax = decimal.Zero
	} else if regime.MarginalRelief {
		excess := income.Sub(regime.RebateLimit)
		if tax.GreaterThan(excess) {
			tax = excess
		}
	}

	return tax.Add(tax.Mul(cessRate)).Round(0).IntPart()
}

// slabTax суммирует налог по каждой ступени, в которую попадает доход
func slabTax(income decimal.Decimal, brackets []TaxBracket) decimal.Decimal {
	tax := decimal.Zero
	for _, b := range brackets {
		if income.LessThanOrEqual(b.Lower) {
			break
		}
		top := income
		if !b.Upper.IsZero() && income.GreaterThan(b.Upper) {
			top = b.Upper
		}
		tax = tax.Add(top.Sub(b.Lower).Mul(b.Rate))
	}
	return tax
}

// TaxableIncome вычитает из годового дохода стандартный вычет режима
// и, если режим их допускает, пользовательские вычеты. Результат не меньше нуля.
func TaxableIncome(annualIncome, deductions float64, regime Regime) decimal.Decimal {
	taxable := decimal.NewFromFloat(annualIncome).Sub(regime.StandardDeduction)
	if regime.AllowsDeductions {
		taxable = taxable.Sub(decimal.NewFromFloat(deductions))
	}
	return decimal.Max(decimal.Zero, taxable)
}

// CompareTaxRegimes считает налог по обоим режимам и выбирает более выгодный
func CompareTaxRegimes(annualIncome, deductions float64) TaxResult {
	taxableOld := TaxableIncome(annualIncome, deductions, OldRegime)
	taxableNew := TaxableIncome(annualIncome, deductions, NewRegime)

	oldTax := TaxLiability(taxableOld.InexactFloat64(), OldRegime)
	newTax := TaxLiability(taxableNew.InexactFloat64(), NewRegime)

	savings := oldTax - newTax
	if savings < 0 {
		savings = -savings
	}

	better := ChoiceEqual
	switch {
	case newTax < oldTax:
		better = ChoiceNew
	case oldTax < newTax:
		better = ChoiceOld
	}

	return TaxResult{
		OldTax:       oldTax,
		NewTax:       newTax,
		Savings:      savings,
		BetterRegime: better,
		TaxableOld:   taxableOld.InexactFloat64(),
		TaxableNew:   taxableNew.InexactFloat64(),
	}
}
