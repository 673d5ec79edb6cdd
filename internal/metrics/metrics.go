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
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	IncArticleRead(operation string)
	IncArticleWrite(operation string)
	IncSlugConflict()
	RecordHTTPStatus(statusCode int)
	RecordQueryLatency(operation string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	articleReads  *prometheus.CounterVec
	articleWrites *prometheus.CounterVec
	slugConflicts prometheus.Counter
	httpStatus    *prometheus.CounterVec
	queryLatency  *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		articleReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globalnews_article_reads_total",
			Help: "記事読み取り操作の合計数",
		}, []string{"operation"}),
		articleWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globalnews_article_writes_total",
			Help: "記事書き込み操作成功の合計数",
		}, []string{"operation"}),
		slugConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "globalnews_slug_conflicts_total",
			Help: "スラッグ一意性違反の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "globalnews_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "globalnews_query_latency_seconds",
			Help:    "ストレージクエリのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.articleReads,
		c.articleWrites,
		c.slugConflicts,
		c.httpStatus,
		c.queryLatency,
	)

	return c
}

// IncArticleRead は記事読み取り操作を記録する。
func (c *Collector) IncArticleRead(operation string) {
	c.articleReads.WithLabelValues(operation).Inc()
}

// IncArticleWrite は記事書き込み操作の成功を記録する。
func (c *Collector) IncArticleWrite(operation string) {
	c.articleWrites.WithLabelValues(operation).Inc()
}

// IncSlugConflict はスラッグ一意性違反を記録する。
func (c *Collector) IncSlugConflict() {
	c.slugConflicts.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordQueryLatency はストレージクエリのレイテンシを記録する。
func (c *Collector) RecordQueryLatency(operation string, duration time.Duration) {
	c.queryLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// アプリケーション固有のレジストリのみを公開する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
