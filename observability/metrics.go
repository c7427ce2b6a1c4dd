package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	cdpMetricsOnce sync.Once
	cdpRegistry    *CDPMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record rpc query API request activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cdp",
				Subsystem: "module",
				Name:      "requests_total",
				Help:      "Total rpc module requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cdp",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total rpc module errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "cdp",
				Subsystem: "module",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for rpc module handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cdp",
				Subsystem: "module",
				Name:      "throttles_total",
				Help:      "Count of module requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" or
// "quota_exceeded" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// CDPMetrics bundles the basket-wide gauges and counters for collateral
// supply, outstanding debt, active liquidations, queue slot utilization, and
// auction discount, the domain-level counterpart to ModuleMetrics' rpc-layer
// instrumentation. cmd/cdpd registers them at startup but calls none of the
// Record/Set methods.
type CDPMetrics struct {
	tvl               *prometheus.GaugeVec
	outstandingDebt   prometheus.Gauge
	activeLiquidation prometheus.Gauge
	queueUtilization  *prometheus.GaugeVec
	auctionDiscount   *prometheus.GaugeVec
	liquidationsTotal *prometheus.CounterVec
}

// CDPMetricsRegistry returns the lazily-initialised CDP domain metrics
// registry, built with the same sync.Once singleton idiom as ModuleMetrics.
func CDPMetricsRegistry() *CDPMetrics {
	cdpMetricsOnce.Do(func() {
		cdpRegistry = &CDPMetrics{
			tvl: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "cdp",
				Subsystem: "basket",
				Name:      "collateral_supply",
				Help:      "Current collateral supply per denom, in base units.",
			}, []string{"denom"}),
			outstandingDebt: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cdp",
				Subsystem: "basket",
				Name:      "outstanding_debt",
				Help:      "Total outstanding credit asset debt across every position.",
			}),
			activeLiquidation: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "cdp",
				Subsystem: "cascade",
				Name:      "propagation_active",
				Help:      "1 while a LiquidationPropagation is in flight, 0 otherwise.",
			}),
			queueUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "cdp",
				Subsystem: "liqqueue",
				Name:      "slot_utilization",
				Help:      "Ratio of waiting bids to maximum_waiting_bids for a premium slot (0-1).",
			}, []string{"denom", "premium"}),
			auctionDiscount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "cdp",
				Subsystem: "auction",
				Name:      "discount",
				Help:      "Current discount fraction for an in-flight debt or fee auction.",
			}, []string{"kind", "denom"}),
			liquidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cdp",
				Subsystem: "cascade",
				Name:      "liquidations_total",
				Help:      "Count of completed LiquidationCascade runs segmented by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			cdpRegistry.tvl,
			cdpRegistry.outstandingDebt,
			cdpRegistry.activeLiquidation,
			cdpRegistry.queueUtilization,
			cdpRegistry.auctionDiscount,
			cdpRegistry.liquidationsTotal,
		)
	})
	return cdpRegistry
}

// RecordSupply sets the collateral_supply gauge for denom.
func (m *CDPMetrics) RecordSupply(denom string, supply *big.Int) {
	if m == nil {
		return
	}
	m.tvl.WithLabelValues(labelAsset(denom)).Set(bigToFloat(supply))
}

// RecordOutstandingDebt sets the basket-wide outstanding debt gauge.
func (m *CDPMetrics) RecordOutstandingDebt(debt *big.Int) {
	if m == nil {
		return
	}
	m.outstandingDebt.Set(bigToFloat(debt))
}

// SetPropagationActive toggles the active liquidation gauge.
func (m *CDPMetrics) SetPropagationActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.activeLiquidation.Set(1)
		return
	}
	m.activeLiquidation.Set(0)
}

// RecordQueueUtilization sets the waiting-bid utilization ratio for one
// (denom, premium) slot.
func (m *CDPMetrics) RecordQueueUtilization(denom string, premium uint32, waiting, max uint32) {
	if m == nil {
		return
	}
	ratio := 0.0
	if max > 0 {
		ratio = float64(waiting) / float64(max)
	}
	m.queueUtilization.WithLabelValues(labelAsset(denom), fmt.Sprintf("%d", premium)).Set(ratio)
}

// RecordAuctionDiscount sets the current discount fraction for an in-flight
// debt ("debt") or fee ("fee") auction.
func (m *CDPMetrics) RecordAuctionDiscount(kind, denom string, discount float64) {
	if m == nil {
		return
	}
	m.auctionDiscount.WithLabelValues(kind, labelAsset(denom)).Set(discount)
}

// RecordLiquidation increments the completed-cascade counter for outcome
// ("repaid", "bad_debt", ...).
func (m *CDPMetrics) RecordLiquidation(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.liquidationsTotal.WithLabelValues(outcome).Inc()
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(trimmed)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
