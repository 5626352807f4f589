// Package format форматирует суммы для отображения
package format

import (
	"math"
	"strconv"
	"strings"
)

// RupeeSymbol ставится перед каждой суммой
const RupeeSymbol = "₹"

// INR форматирует сумму в целых рупиях с индийской группировкой разрядов ("₹12,34,567").
// Дробная часть округляется, половина вверх.
func INR(amount float64) string {
	rounded := math.Floor(amount + 0.5)
	if rounded < 0 {
		return "-" + RupeeSymbol + groupIndian(-rounded)
	}
	return RupeeSymbol + groupIndian(rounded)
}

// Lakhs записывает сумму в лакхах или кроре ("₹1.5 L", "₹1.16 Cr")
func Lakhs(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	// Единица выбирается по уже округленному числу лакхов
	lakhs := round2(amount / 1e5)
	switch {
	case lakhs >= 100:
		return sign + RupeeSymbol + strconv.FormatFloat(round2(amount/1e7), 'f', -1, 64) + " Cr"
	case lakhs >= 1:
		return sign + RupeeSymbol + strconv.FormatFloat(lakhs, 'f', -1, 64) + " L"
	}
	return sign + INR(amount)
}

// groupIndian отделяет последние три цифры, левее - группы по две
func groupIndian(value float64) string {
	digits := strconv.FormatFloat(value, 'f', 0, 64)
	if len(digits) <= 3 {
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var builder strings.Builder
	for i, digit := range head {
		if i > 0 && (len(head)-i)%2 == 0 {
			builder.WriteByte(',')
		}
		builder.WriteRune(digit)
	}
	return builder.String() + "," + tail
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
