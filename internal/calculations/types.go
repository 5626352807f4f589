package calculations

import (
	"errors"
	"fmt"
	"strings"
)

// Kind определяет тип калькулятора
type Kind string

const (
	KindSIP     Kind = "SIP"
	KindLumpsum Kind = "LUMPSUM"
	KindEMI     Kind = "EMI"
	KindPPF     Kind = "PPF"
	KindTax     Kind = "TAX"
)

// ErrUnknownKind возвращается для неизвестного типа калькулятора
var ErrUnknownKind = errors.New("неизвестный тип калькулятора")

// Kinds возвращает все поддерживаемые типы в порядке вкладок интерфейса
func Kinds() []Kind {
	return []Kind{KindSIP, KindLumpsum, KindEMI, KindPPF, KindTax}
}

// ParseKind разбирает тип калькулятора без учета регистра
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Input содержит входные параметры одного расчета.
// Rate и Duration используются всеми типами кроме TAX, Deductions - только TAX.
type Input struct {
	Amount     float64 `json:"amount" yaml:"amount"`
	Rate       float64 `json:"annual_rate_percent" yaml:"annual_rate_percent"`
	Duration   int     `json:"years" yaml:"years"`
	Deductions float64 `json:"deductions,omitempty" yaml:"deductions,omitempty"`
}

// Цвета сегментов диаграммы
const (
	ColorBlue    = "#3b82f6"
	ColorEmerald = "#10b981"
	ColorRed     = "#ef4444"
)

// BreakdownItem представляет один сегмент диаграммы результата
type BreakdownItem struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
	Color string  `json:"color" yaml:"color"`
}

// Result - результат расчета конкретного типа калькулятора.
// Реализуется только типами этого пакета.
type Result interface {
	Kind() Kind
	Breakdown() []BreakdownItem
	Record() Record
	isResult()
}

// Record - плоская запись результата в формате исходного калькулятора.
// Для EMI и TAX поля InvestedAmount/WealthGained/TotalValue имеют другое значение,
// см. EMIResult.Record и TaxResult.Record.
type Record struct {
	InvestedAmount float64         `json:"investedAmount" yaml:"invested_amount"`
	WealthGained   float64         `json:"wealthGained" yaml:"wealth_gained"`
	TotalValue     float64         `json:"totalValue" yaml:"total_value"`
	MonthlyPayment *float64        `json:"monthlyPayment,omitempty" yaml:"monthly_payment,omitempty"`
	Breakdown      []BreakdownItem `json:"breakdown" yaml:"breakdown"`
}

// InvestmentResult - результат SIP, LUMPSUM и PPF
type InvestmentResult struct {
	CalculatorKind Kind    `json:"kind" yaml:"kind"`
	InvestedAmount float64 `json:"invested_amount" yaml:"invested_amount"`
	WealthGained   float64 `json:"wealth_gained" yaml:"wealth_gained"`
	TotalValue     float64 `json:"total_value" yaml:"total_value"`
}

func (r InvestmentResult) Kind() Kind { return r.CalculatorKind }

func (r InvestmentResult) Breakdown() []BreakdownItem {
	return []BreakdownItem{
		{Label: "Invested", Value: r.InvestedAmount, Color: ColorBlue},
		{Label: "Returns", Value: r.WealthGained, Color: ColorEmerald},
	}
}

func (r InvestmentResult) Record() Record {
	return Record{
		InvestedAmount: r.InvestedAmount,
		WealthGained:   r.WealthGained,
		TotalValue:     r.TotalValue,
		Breakdown:      r.Breakdown(),
	}
}

func (InvestmentResult) isResult() {}

// EMIResult - результат расчета аннуитетного платежа
type EMIResult struct {
	Principal      float64 `json:"principal" yaml:"principal"`
	Interest       float64 `json:"interest" yaml:"interest"`
	MonthlyPayment float64 `json:"monthly_payment" yaml:"monthly_payment"`
	TotalPayable   float64 `json:"total_payable" yaml:"total_payable"`
}

func (EMIResult) Kind() Kind { return KindEMI }

func (r EMIResult) Breakdown() []BreakdownItem {
	return []BreakdownItem{
		{Label: "Principal", Value: r.Principal, Color: ColorBlue},
		{Label: "Interest", Value: r.Interest, Color: ColorEmerald},
	}
}

// Record раскладывает тело кредита в InvestedAmount, проценты в WealthGained,
// общую сумму выплат в TotalValue.
func (r EMIResult) Record() Record {
	payment := r.MonthlyPayment
	return Record{
		InvestedAmount: r.Principal,
		WealthGained:   r.Interest,
		TotalValue:     r.TotalPayable,
		MonthlyPayment: &payment,
		Breakdown:      r.Breakdown(),
	}
}

func (EMIResult) isResult() {}

// RegimeChoice указывает более выгодный налоговый режим
type RegimeChoice string

const (
	ChoiceOld   RegimeChoice = "OLD"
	ChoiceNew   RegimeChoice = "NEW"
	ChoiceEqual RegimeChoice = "EQUAL"
)

// TaxResult - сравнение налога по старому и новому режимам
type TaxResult struct {
	OldTax       int64        `json:"old_tax" yaml:"old_tax"`
	NewTax       int64        `json:"new_tax" yaml:"new_tax"`
	Savings      int64        `json:"savings" yaml:"savings"`
	BetterRegime RegimeChoice `json:"better_regime" yaml:"better_regime"`
	TaxableOld   float64      `json:"taxable_old" yaml:"taxable_old"`
	TaxableNew   float64      `json:"taxable_new" yaml:"taxable_new"`
}

func (TaxResult) Kind() Kind { return KindTax }

func (r TaxResult) Breakdown() []BreakdownItem {
	return []BreakdownItem{
		{Label: "Old Regime Tax", Value: float64(r.OldTax), Color: ColorRed},
		{Label: "New Regime Tax", Value: float64(r.NewTax), Color: ColorEmerald},
	}
}

// Record кладет налог старого режима в InvestedAmount, нового - в WealthGained,
// разницу - в TotalValue.
func (r TaxResult) Record() Record {
	return Record{
		InvestedAmount: float64(r.OldTax),
		WealthGained:   float64(r.NewTax),
		TotalValue:     float64(r.Savings),
		Breakdown:      r.Breakdown(),
	}
}

func (TaxResult) isResult() {}

// ScheduleEntry представляет состояние расчета на конец одного года
type ScheduleEntry struct {
	Year                    int     `json:"year" yaml:"year"`
	Contribution            float64 `json:"contribution,omitempty" yaml:"contribution,omitempty"`
	CumulativeContributions float64 `json:"cumulative_contributions,omitempty" yaml:"cumulative_contributions,omitempty"`
	InterestEarned          float64 `json:"interest_earned,omitempty" yaml:"interest_earned,omitempty"`
	EndingBalance           float64 `json:"ending_balance,omitempty" yaml:"ending_balance,omitempty"`
	Payment                 float64 `json:"payment,omitempty" yaml:"payment,omitempty"`
	PrincipalComponent      float64 `json:"principal_component,omitempty" yaml:"principal_component,omitempty"`
	RemainingPrincipal      float64 `json:"remaining_principal,omitempty" yaml:"remaining_principal,omitempty"`
}
