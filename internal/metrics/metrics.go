package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolCalls счетчик вызовов инструментов
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_calls_total",
			Help: "Общее количество вызовов инструментов",
		},
		[]string{"tool_name", "status"},
	)

	// Calculations счетчик расчетов по типу калькулятора
	Calculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculations_total",
			Help: "Количество выполненных расчетов по типу калькулятора",
		},
		[]string{"kind", "status"},
	)

	// CalculationErrors счетчик ошибок расчетов
	CalculationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calculation_errors_total",
			Help: "Количество ошибок расчетов",
		},
		[]string{"tool_name", "error_type"},
	)

	// APICalls счетчик вызовов API
	APICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_calls_total",
			Help: "Вызовы API инструментов",
		},
		[]string{"service", "endpoint", "status"},
	)

	// CacheRequests счетчик обращений к кешу результатов
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Обращения к кешу результатов",
		},
		[]string{"result"},
	)

	// ChatMessages счетчик сообщений чата
	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Сообщения, отправленные языковой модели",
		},
		[]string{"status"},
	)
)
