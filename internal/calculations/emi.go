package calculations

import (
	"math"

	"github.com/cloud-ru/sky-financial-go/pkg/utils"
)

// EMI рассчитывает аннуитетный ежемесячный платеж по кредиту amount на years лет
func EMI(amount, annualRatePercent float64, years int) EMIResult {
	r := annualRatePercent / 12.0 / 100.0
	months := years * 12
	if months <= 0 {
		return EMIResult{Principal: utils.RoundUnit(amount), TotalPayable: utils.RoundUnit(amount)}
	}

	monthlyPayment := monthlyInstallment(amount, r, months)
	totalPayable := monthlyPayment * float64(months)

	return EMIResult{
		Principal:      utils.RoundUnit(amount),
		Interest:       utils.RoundUnit(totalPayable - amount),
		MonthlyPayment: utils.RoundUnit(monthlyPayment),
		TotalPayable:   utils.RoundUnit(totalPayable),
	}
}

// monthlyInstallment возвращает неокругленный платеж; при нулевой ставке долг делится поровну
func monthlyInstallment(principal, monthlyRate float64, months int) float64 {
	if monthlyRate == 0.0 {
		return principal / float64(months)
	}
	growth := math.Pow(1.0+monthlyRate, float64(months))
	return principal * monthlyRate * growth / (growth - 1.0)
}
