package calculations

import (
	"errors"
	"fmt"

	"github.com/cloud-ru/sky-financial-go/pkg/utils"
)

// ErrNoSchedule возвращается для калькуляторов без помесячной динамики
var ErrNoSchedule = errors.New("для этого калькулятора график не строится")

// Schedule строит погодовой график для SIP, LUMPSUM, PPF и EMI.
// Последняя запись графика совпадает с итогом Calculate с точностью до округления.
func Schedule(kind Kind, input Input) ([]ScheduleEntry, error) {
	switch kind {
	case KindSIP:
		return sipSchedule(input.Amount, input.Rate, input.Duration), nil
	case KindLumpsum:
		return lumpsumSchedule(input.Amount, input.Rate, input.Duration), nil
	case KindPPF:
		return ppfSchedule(input.Amount, input.Rate, input.Duration), nil
	case KindEMI:
		return emiSchedule(input.Amount, input.Rate, input.Duration), nil
	case KindTax:
		return nil, ErrNoSchedule
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func sipSchedule(amount, annualRatePercent float64, years int) []ScheduleEntry {
	r := annualRatePercent / 100.0 / 12.0
	schedule := make([]ScheduleEntry, 0, max(years, 0))

	balance := 0.0
	cumC := 0.0
	for y := 1; y <= years; y++ {
		starting := balance
		for m := 0; m < 12; m++ {
			balance += amount
			balance += balance * r
		}
		cumC += amount * 12
		schedule = append(schedule, ScheduleEntry{
			Year:                    y,
			Contribution:            utils.Round2(amount * 12),
			CumulativeContributions: utils.Round2(cumC),
			InterestEarned:          utils.Round2(balance - starting - amount*12),
			EndingBalance:           utils.Round2(balance),
		})
	}
	return schedule
}

func lumpsumSchedule(amount, annualRatePercent float64, years int) []ScheduleEntry {
	schedule := make([]ScheduleEntry, 0, max(years, 0))

	balance := amount
	for y := 1; y <= years; y++ {
		interest := balance * annualRatePercent / 100.0
		balance += interest
		schedule = append(schedule, ScheduleEntry{
			Year:                    y,
			CumulativeContributions: utils.Round2(amount),
			InterestEarned:          utils.Round2(interest),
			EndingBalance:           utils.Round2(balance),
		})
	}
	return schedule
}

func ppfSchedule(amount, annualRatePercent float64, years int) []ScheduleEntry {
	schedule := make([]ScheduleEntry, 0, max(years, 0))

	balance := 0.0
	cumC := 0.0
	for y := 1; y <= years; y++ {
		balance += amount
		cumC += amount
		interest := balance * (annualRatePercent / 100.0)
		balance += interest
		schedule = append(schedule, ScheduleEntry{
			Year:                    y,
			Contribution:            utils.Round2(amount),
			CumulativeContributions: utils.Round2(cumC),
			InterestEarned:          utils.Round2(interest),
			EndingBalance:           utils.Round2(balance),
		})
	}
	return schedule
}

// emiSchedule агрегирует помесячную амортизацию кредита по годам
func emiSchedule(principal, annualRatePercent float64, years int) []ScheduleEntry {
	r := annualRatePercent / 12.0 / 100.0
	n := years * 12
	if n <= 0 {
		return []ScheduleEntry{}
	}

	payment := monthlyInstallment(principal, r, n)
	schedule := make([]ScheduleEntry, 0, years)
	remaining := principal

	for y := 1; y <= years; y++ {
		var paid, interestSum, principalSum float64
		for m := 1; m <= 12; m++ {
			interest := remaining * r
			principalComponent := payment - interest
			monthly := payment
			if (y-1)*12+m == n {
				principalComponent = remaining
				monthly = principalComponent + interest
			}
			remaining -= principalComponent
			paid += monthly
			interestSum += interest
			principalSum += principalComponent
		}

		remainingPrincipal := utils.Round2(remaining)
		if remainingPrincipal < 0 {
			remainingPrincipal = 0.0
		}

		schedule = append(schedule, ScheduleEntry{
			Year:               y,
			Payment:            utils.Round2(paid),
			InterestEarned:     utils.Round2(interestSum),
			PrincipalComponent: utils.Round2(principalSum),
			RemainingPrincipal: remainingPrincipal,
		})
	}
	return schedule
}
