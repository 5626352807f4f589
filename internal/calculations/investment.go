package calculations

import (
	"math"

	"github.com/cloud-ru/sky-financial-go/pkg/utils"
)

// SIP рассчитывает итог ежемесячных взносов amount за years лет.
// Взнос вносится в начале месяца и растет вместе с ним (аннуитет пренумерандо).
func SIP(amount, annualRatePercent float64, years int) InvestmentResult {
	i := annualRatePercent / 100.0 / 12.0
	n := float64(years * 12)

	invested := amount * n

	var total float64
	if i == 0.0 {
		total = invested
	} else {
		total = amount * ((math.Pow(1.0+i, n) - 1.0) / i) * (1.0 + i)
	}

	return newInvestmentResult(KindSIP, invested, total)
}

// Lumpsum рассчитывает рост единовременного вложения при ежегодной капитализации
func Lumpsum(amount, annualRatePercent float64, years int) InvestmentResult {
	total := amount * math.Pow(1.0+annualRatePercent/100.0, float64(years))
	return newInvestmentResult(KindLumpsum, amount, total)
}

// PPF рассчитывает упрощенную годовую модель PPF: каждый год сначала вносится amount,
// затем на весь остаток начисляется годовая ставка.
func PPF(amount, annualRatePercent float64, years int) InvestmentResult {
	balance := 0.0
	for y := 0; y < years; y++ {
		balance += amount
		balance += balance * (annualRatePercent / 100.0)
	}

	return newInvestmentResult(KindPPF, amount*float64(years), balance)
}

func newInvestmentResult(kind Kind, invested, total float64) InvestmentResult {
	gained := total - invested
	return InvestmentResult{
		CalculatorKind: kind,
		InvestedAmount: utils.RoundUnit(invested),
		WealthGained:   utils.RoundUnit(gained),
		TotalValue:     utils.RoundUnit(total),
	}
}
