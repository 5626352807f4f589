package calculations

import (
	"fmt"
)

// Calculate выбирает формулу по типу калькулятора и выполняет расчет.
// Числовые входные данные не проверяются: диапазоны ограничивает вызывающая сторона.
func Calculate(kind Kind, input Input) (Result, error) {
	switch kind {
	case KindSIP:
		return SIP(input.Amount, input.Rate, input.Duration), nil
	case KindLumpsum:
		return Lumpsum(input.Amount, input.Rate, input.Duration), nil
	case KindEMI:
		return EMI(input.Amount, input.Rate, input.Duration), nil
	case KindPPF:
		return PPF(input.Amount, input.Rate, input.Duration), nil
	case KindTax:
		return CompareTaxRegimes(input.Amount, input.Deductions), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Defaults возвращает начальные значения калькулятора
func Defaults(kind Kind) Input {
	switch kind {
	case KindSIP:
		return Input{Amount: 5000, Rate: 12, Duration: 10}
	case KindLumpsum:
		return Input{Amount: 100000, Rate: 12, Duration: 10}
	case KindEMI:
		return Input{Amount: 5000000, Rate: 9, Duration: 20}
	case KindPPF:
		return Input{Amount: 100000, Rate: 7.1, Duration: 15}
	case KindTax:
		return Input{Amount: 1200000}
	}
	return Input{Amount: 1000, Rate: 10, Duration: 10}
}
