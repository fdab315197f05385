// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	ObserveLLMRequest(provider, operation, outcome string, elapsed time.Duration)
	ObserveExport(format, outcome string, sizeBytes int)
	ObserveCacheLookup(result string)
	RecordExportsPurged(count int)
	RecordRateLimited(limitType string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	llmRequests   *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	exports       *prometheus.CounterVec
	exportSize    *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	exportsPurged prometheus.Counter
	rateLimited   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchdeck_http_requests_total",
			Help: "ルートとステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitchdeck_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchdeck_llm_requests_total",
			Help: "プロバイダ、操作、結果別のLLM呼び出し数",
		}, []string{"provider", "operation", "outcome"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitchdeck_llm_request_duration_seconds",
			Help:    "LLM呼び出しのレイテンシ（秒）",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"provider", "operation"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchdeck_exports_total",
			Help: "形式と結果別のエクスポート数",
		}, []string{"format", "outcome"}),
		exportSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pitchdeck_export_size_bytes",
			Help:    "エクスポートしたファイルのサイズ（バイト）",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
		}, []string{"format"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchdeck_suggestion_cache_lookups_total",
			Help: "画像提案キャッシュの参照結果別の件数",
		}, []string{"result"}),
		exportsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitchdeck_exports_purged_total",
			Help: "保持期間を過ぎて削除したエクスポートの合計数",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pitchdeck_rate_limited_total",
			Help: "レート制限で拒否したリクエスト数",
		}, []string{"limit_type"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.llmRequests,
		c.llmLatency,
		c.exports,
		c.exportSize,
		c.cacheLookups,
		c.exportsPurged,
		c.rateLimited,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveLLMRequest はLLM呼び出しの結果とレイテンシを記録する。
func (c *Collector) ObserveLLMRequest(provider, operation, outcome string, elapsed time.Duration) {
	c.llmRequests.WithLabelValues(provider, operation, outcome).Inc()
	c.llmLatency.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

// ObserveExport はエクスポートの結果を記録する。サイズは成功時のみ記録する。
func (c *Collector) ObserveExport(format, outcome string, sizeBytes int) {
	c.exports.WithLabelValues(format, outcome).Inc()
	if sizeBytes > 0 {
		c.exportSize.WithLabelValues(format).Observe(float64(sizeBytes))
	}
}

// ObserveCacheLookup はキャッシュ参照の結果（hit、miss、error）を記録する。
func (c *Collector) ObserveCacheLookup(result string) {
	c.cacheLookups.WithLabelValues(result).Inc()
}

// RecordExportsPurged は削除したエクスポート数を記録する。
func (c *Collector) RecordExportsPurged(count int) {
	c.exportsPurged.Add(float64(count))
}

// RecordRateLimited は429で拒否したリクエストを制限の種類（general、ai）別に記録する。
func (c *Collector) RecordRateLimited(limitType string) {
	c.rateLimited.WithLabelValues(limitType).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
