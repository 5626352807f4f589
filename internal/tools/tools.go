package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cloud-ru/sky-financial-go/internal/cache"
	"github.com/cloud-ru/sky-financial-go/internal/calculations"
	"github.com/cloud-ru/sky-financial-go/internal/config"
	"github.com/cloud-ru/sky-financial-go/internal/metrics"
	"github.com/cloud-ru/sky-financial-go/internal/validators"
	"github.com/cloud-ru/sky-financial-go/pkg/format"
)

// ToolHandler представляет обработчик инструмента
type ToolHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Имена инструментов
const (
	ToolSIP            = "sip_calculator"
	ToolLumpsum        = "lumpsum_calculator"
	ToolEMI            = "emi_calculator"
	ToolPPF            = "ppf_calculator"
	ToolTax            = "tax_regime_comparison"
	ToolGrowthSchedule = "growth_schedule"
)

// ToolKinds сопоставляет инструменты калькуляторов с типами расчета
var ToolKinds = map[string]calculations.Kind{
	ToolSIP:     calculations.KindSIP,
	ToolLumpsum: calculations.KindLumpsum,
	ToolEMI:     calculations.KindEMI,
	ToolPPF:     calculations.KindPPF,
	ToolTax:     calculations.KindTax,
}

// Deps - общие зависимости обработчиков
type Deps struct {
	Config *config.Config
	Tracer trace.Tracer
	Cache  cache.Cache
	Logger *zap.Logger
}

// CalculationResponse - ответ инструмента калькулятора
type CalculationResponse struct {
	Kind      calculations.Kind   `json:"kind" yaml:"kind"`
	Input     calculations.Input  `json:"input" yaml:"input"`
	Result    calculations.Result `json:"result" yaml:"result"`
	Record    calculations.Record `json:"record" yaml:"record"`
	Formatted map[string]string   `json:"formatted" yaml:"formatted"`
	Summary   string              `json:"summary" yaml:"summary"`
}

// ScheduleResponse - ответ инструмента погодового графика
type ScheduleResponse struct {
	Kind     calculations.Kind            `json:"kind" yaml:"kind"`
	Input    calculations.Input           `json:"input" yaml:"input"`
	Schedule []calculations.ScheduleEntry `json:"schedule" yaml:"schedule"`
}

// Registry возвращает все инструменты по именам
func Registry(deps Deps) map[string]ToolHandler {
	handlers := make(map[string]ToolHandler, len(ToolKinds)+1)
	for name, kind := range ToolKinds {
		handlers[name] = CalculatorHandler(deps, name, kind)
	}
	handlers[ToolGrowthSchedule] = GrowthScheduleHandler(deps)
	return handlers
}

// CalculatorHandler обрабатывает запрос на расчет калькулятора kind
func CalculatorHandler(deps Deps, toolName string, kind calculations.Kind) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		ctx, span := deps.Tracer.Start(ctx, toolName)
		defer span.End()

		input, err := parseInput(kind, params)
		if err != nil {
			return nil, fail(span, toolName, kind, "validation", err)
		}

		span.SetAttributes(
			attribute.String("kind", string(kind)),
			attribute.Float64("amount", input.Amount),
			attribute.Float64("annual_rate_percent", input.Rate),
			attribute.Int("years", input.Duration),
			attribute.Float64("deductions", input.Deductions),
		)

		metrics.APICalls.WithLabelValues("tools", toolName, "started").Inc()

		// Валидация
		if err := validators.CheckInput(deps.Config, kind, input); err != nil {
			return nil, fail(span, toolName, kind, "validation", fmt.Errorf("неверные параметры: %w", err))
		}

		key := cache.Key(kind, input)
		if cached, ok := lookup(ctx, deps, key); ok {
			span.SetAttributes(attribute.Bool("cache_hit", true), attribute.Bool("success", true))
			succeed(toolName, kind)
			return cached, nil
		}

		// Расчет
		result, err := calculations.Calculate(kind, input)
		if err != nil {
			return nil, fail(span, toolName, kind, "calculation", fmt.Errorf("ошибка при выполнении расчета: %w", err))
		}

		response := NewCalculationResponse(kind, input, result)
		store(ctx, deps, key, response)

		rec := response.Record
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Float64("total_value", rec.TotalValue),
		)
		succeed(toolName, kind)

		return response, nil
	}
}

// GrowthScheduleHandler обрабатывает запрос на погодовой график
func GrowthScheduleHandler(deps Deps) ToolHandler {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		toolName := ToolGrowthSchedule

		_, span := deps.Tracer.Start(ctx, toolName)
		defer span.End()

		kindName, ok := params["kind"].(string)
		if !ok {
			return nil, fail(span, toolName, "", "validation", fmt.Errorf("invalid parameter: kind"))
		}
		kind, err := calculations.ParseKind(kindName)
		if err != nil {
			return nil, fail(span, toolName, "", "validation", err)
		}

		input, err := parseInput(kind, params)
		if err != nil {
			return nil, fail(span, toolName, kind, "validation", err)
		}

		span.SetAttributes(
			attribute.String("kind", string(kind)),
			attribute.Int("years", input.Duration),
		)

		metrics.APICalls.WithLabelValues("tools", toolName, "started").Inc()

		if err := validators.CheckInput(deps.Config, kind, input); err != nil {
			return nil, fail(span, toolName, kind, "validation", fmt.Errorf("неверные параметры: %w", err))
		}

		schedule, err := calculations.Schedule(kind, input)
		if err != nil {
			return nil, fail(span, toolName, kind, "calculation", fmt.Errorf("ошибка при выполнении расчета: %w", err))
		}

		span.SetAttributes(attribute.Bool("success", true))
		succeed(toolName, kind)

		return ScheduleResponse{Kind: kind, Input: input, Schedule: schedule}, nil
	}
}

// NewCalculationResponse дополняет результат отформатированными суммами
func NewCalculationResponse(kind calculations.Kind, input calculations.Input, result calculations.Result) CalculationResponse {
	return CalculationResponse{
		Kind:      kind,
		Input:     input,
		Result:    result,
		Record:    result.Record(),
		Formatted: Formatted(result),
		Summary:   Summary(result),
	}
}

// Formatted возвращает суммы результата в рупиях
func Formatted(result calculations.Result) map[string]string {
	switch r := result.(type) {
	case calculations.InvestmentResult:
		return map[string]string{
			"invested_amount": format.INR(r.InvestedAmount),
			"wealth_gained":   format.INR(r.WealthGained),
			"total_value":     format.INR(r.TotalValue),
		}
	case calculations.EMIResult:
		return map[string]string{
			"monthly_payment": format.INR(r.MonthlyPayment),
			"principal":       format.INR(r.Principal),
			"interest":        format.INR(r.Interest),
			"total_payable":   format.INR(r.TotalPayable),
		}
	case calculations.TaxResult:
		return map[string]string{
			"old_tax": format.INR(float64(r.OldTax)),
			"new_tax": format.INR(float64(r.NewTax)),
			"savings": format.INR(float64(r.Savings)),
		}
	}
	return map[string]string{}
}

// Summary описывает результат одной строкой
func Summary(result calculations.Result) string {
	switch r := result.(type) {
	case calculations.InvestmentResult:
		return fmt.Sprintf("Total value %s (invested %s, returns %s)",
			format.INR(r.TotalValue), format.INR(r.InvestedAmount), format.INR(r.WealthGained))
	case calculations.EMIResult:
		return fmt.Sprintf("Monthly EMI %s, total interest %s",
			format.INR(r.MonthlyPayment), format.INR(r.Interest))
	case calculations.TaxResult:
		switch r.BetterRegime {
		case calculations.ChoiceNew:
			return fmt.Sprintf("Switch to New Regime. You save %s", format.INR(float64(r.Savings)))
		case calculations.ChoiceOld:
			return fmt.Sprintf("Switch to Old Regime. You save %s", format.INR(float64(r.Savings)))
		}
		return "Both are equal."
	}
	return ""
}

// parseInput извлекает параметры; для налога ставка и срок необязательны
func parseInput(kind calculations.Kind, params map[string]interface{}) (calculations.Input, error) {
	var in calculations.Input

	amount, ok := params["amount"].(float64)
	if !ok {
		return in, fmt.Errorf("invalid parameter: amount")
	}
	in.Amount = amount

	if kind == calculations.KindTax {
		if v, present := params["deductions"]; present {
			deductions, ok := v.(float64)
			if !ok {
				return in, fmt.Errorf("invalid parameter: deductions")
			}
			in.Deductions = deductions
		}
		return in, nil
	}

	rate, ok := params["annual_rate_percent"].(float64)
	if !ok {
		return in, fmt.Errorf("invalid parameter: annual_rate_percent")
	}
	in.Rate = rate

	yearsFloat, ok := params["years"].(float64)
	if !ok || yearsFloat != float64(int(yearsFloat)) {
		return in, fmt.Errorf("invalid parameter: years")
	}
	in.Duration = int(yearsFloat)

	return in, nil
}

func lookup(ctx context.Context, deps Deps, key string) (json.RawMessage, bool) {
	if deps.Cache == nil {
		return nil, false
	}
	data, ok, err := deps.Cache.Get(ctx, key)
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		deps.Logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return json.RawMessage(data), true
}

func store(ctx context.Context, deps Deps, key string, response CalculationResponse) {
	if deps.Cache == nil {
		return
	}
	data, err := json.Marshal(response)
	if err != nil {
		deps.Logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := deps.Cache.Set(ctx, key, data); err != nil {
		deps.Logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func fail(span trace.Span, toolName string, kind calculations.Kind, errType string, err error) error {
	span.SetAttributes(attribute.String("error", errType+"_error"))
	span.RecordError(err)
	status := "error"
	if errType == "validation" {
		status = "validation_error"
	}
	metrics.ToolCalls.WithLabelValues(toolName, status).Inc()
	metrics.CalculationErrors.WithLabelValues(toolName, errType).Inc()
	metrics.APICalls.WithLabelValues("tools", toolName, "error").Inc()
	if kind != "" {
		metrics.Calculations.WithLabelValues(strings.ToLower(string(kind)), status).Inc()
	}
	return err
}

func succeed(toolName string, kind calculations.Kind) {
	metrics.ToolCalls.WithLabelValues(toolName, "success").Inc()
	metrics.APICalls.WithLabelValues("tools", toolName, "success").Inc()
	metrics.Calculations.WithLabelValues(strings.ToLower(string(kind)), "success").Inc()
}
