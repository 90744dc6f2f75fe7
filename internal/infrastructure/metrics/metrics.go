package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aggregator_service"

// AggregatorMetrics содержит все метрики маршрутизации и расчётов.
// Все Record* методы безопасны для nil получателя.
type AggregatorMetrics struct {
	// Попытки создания сделки у агрегатора
	RoutingAttemptsTotal   *prometheus.CounterVec
	RoutingAttemptDuration *prometheus.HistogramVec

	// Итог маршрутизации
	DealsRoutedTotal           *prometheus.CounterVec
	DealsRoutedAmountTotal     *prometheus.CounterVec
	NoAggregatorAvailableTotal *prometheus.CounterVec

	// Переходы статусов
	DealTransitionsTotal *prometheus.CounterVec
	PlatformProfitTotal  *prometheus.CounterVec

	// Колбэки
	CallbacksTotal *prometheus.CounterVec

	// SLA и приоритеты
	AggregatorPriority          *prometheus.GaugeVec
	AggregatorSuccessRate       *prometheus.GaugeVec
	AggregatorAvgResponseMs     *prometheus.GaugeVec
	AggregatorSLAViolationRate  *prometheus.GaugeVec
	PriorityRecalculationsTotal *prometheus.CounterVec
}

func NewAggregatorMetrics(reg prometheus.Registerer) *AggregatorMetrics {
	factory := promauto.With(reg)

	return &AggregatorMetrics{
		RoutingAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "attempts_total",
				Help:      "Количество попыток создания сделки у агрегатора",
			},
			[]string{"aggregator_id", "outcome"},
		),
		RoutingAttemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "attempt_duration_seconds",
				Help:      "Время ответа агрегатора на создание сделки",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
			},
			[]string{"aggregator_id"},
		),
		DealsRoutedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "deals_routed_total",
				Help:      "Количество сделок, принятых агрегатором",
			},
			[]string{"aggregator_id", "payment_method"},
		),
		DealsRoutedAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "deals_routed_amount_total",
				Help:      "Сумма сделок, принятых агрегатором",
			},
			[]string{"aggregator_id"},
		),
		NoAggregatorAvailableTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "no_aggregator_available_total",
				Help:      "Сделки, для которых не нашлось агрегатора",
			},
			[]string{"merchant_id", "payment_method"},
		),
		DealTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "deals",
				Name:      "transitions_total",
				Help:      "Переходы статусов сделок",
			},
			[]string{"from", "to", "source"},
		),
		PlatformProfitTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "deals",
				Name:      "platform_profit_usdt_total",
				Help:      "Зафиксированная прибыль платформы в USDT",
			},
			[]string{"aggregator_id"},
		),
		CallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "callbacks",
				Name:      "items_total",
				Help:      "Обработанные элементы колбэков по результату",
			},
			[]string{"result"},
		),
		AggregatorPriority: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sla",
				Name:      "aggregator_priority",
				Help:      "Текущий приоритет агрегатора",
			},
			[]string{"aggregator_id"},
		),
		AggregatorSuccessRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sla",
				Name:      "aggregator_success_rate",
				Help:      "Доля успешных ответов агрегатора за окно",
			},
			[]string{"aggregator_id"},
		),
		AggregatorAvgResponseMs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sla",
				Name:      "aggregator_avg_response_ms",
				Help:      "Среднее время ответа агрегатора за окно",
			},
			[]string{"aggregator_id"},
		),
		AggregatorSLAViolationRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sla",
				Name:      "aggregator_violation_rate",
				Help:      "Доля нарушений SLA за окно",
			},
			[]string{"aggregator_id"},
		),
		PriorityRecalculationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sla",
				Name:      "priority_recalculations_total",
				Help:      "Пересчёты приоритетов по результату",
			},
			[]string{"result"},
		),
	}
}

// RecordAttempt записывает одну попытку вызова агрегатора
func (m *AggregatorMetrics) RecordAttempt(aggregatorID, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RoutingAttemptsTotal.WithLabelValues(aggregatorID, outcome).Inc()
	m.RoutingAttemptDuration.WithLabelValues(aggregatorID).Observe(elapsed.Seconds())
}

func (m *AggregatorMetrics) RecordDealRouted(aggregatorID, paymentMethod string, amount float64) {
	if m == nil {
		return
	}
	m.DealsRoutedTotal.WithLabelValues(aggregatorID, paymentMethod).Inc()
	m.DealsRoutedAmountTotal.WithLabelValues(aggregatorID).Add(amount)
}

func (m *AggregatorMetrics) RecordNoAggregator(merchantID, paymentMethod string) {
	if m == nil {
		return
	}
	m.NoAggregatorAvailableTotal.WithLabelValues(merchantID, paymentMethod).Inc()
}

func (m *AggregatorMetrics) RecordTransition(from, to, source string) {
	if m == nil {
		return
	}
	m.DealTransitionsTotal.WithLabelValues(from, to, source).Inc()
}

// RecordPlatformProfit записывает прибыль платформы; отрицательная маржа в счётчик не попадает
func (m *AggregatorMetrics) RecordPlatformProfit(aggregatorID string, profit float64) {
	if m == nil || profit <= 0 {
		return
	}
	m.PlatformProfitTotal.WithLabelValues(aggregatorID).Add(profit)
}

func (m *AggregatorMetrics) RecordCallback(result string) {
	if m == nil {
		return
	}
	m.CallbacksTotal.WithLabelValues(result).Inc()
}

func (m *AggregatorMetrics) RecordSLA(aggregatorID string, successRate, avgResponseMs, violationRate float64) {
	if m == nil {
		return
	}
	m.AggregatorSuccessRate.WithLabelValues(aggregatorID).Set(successRate)
	m.AggregatorAvgResponseMs.WithLabelValues(aggregatorID).Set(avgResponseMs)
	m.AggregatorSLAViolationRate.WithLabelValues(aggregatorID).Set(violationRate)
}

func (m *AggregatorMetrics) RecordPriority(aggregatorID string, priority int) {
	if m == nil {
		return
	}
	m.AggregatorPriority.WithLabelValues(aggregatorID).Set(float64(priority))
}

func (m *AggregatorMetrics) RecordRecalculation(ok bool) {
	if m == nil {
		return
	}
	m.PriorityRecalculationsTotal.WithLabelValues(strconv.FormatBool(ok)).Inc()
}
