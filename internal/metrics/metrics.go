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
// チャットボットクライアントやHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordUpstreamSuccess(operation string)
	RecordUpstreamFailure(operation string, reason string)
	RecordUpstreamLatency(operation string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordSignIn(success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamSuccess *prometheus.CounterVec
	upstreamFail    *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	httpStatus      *prometheus.CounterVec
	signIn          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wider_chatbot_success_total",
			Help: "チャットボット呼び出し成功の合計数",
		}, []string{"operation"}),
		upstreamFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wider_chatbot_fail_total",
			Help: "チャットボット呼び出し失敗の合計数",
		}, []string{"operation", "reason"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wider_chatbot_latency_seconds",
			Help:    "チャットボット呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wider_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		signIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wider_signin_total",
			Help: "サインイン試行の合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.upstreamSuccess,
		c.upstreamFail,
		c.upstreamLatency,
		c.httpStatus,
		c.signIn,
	)

	return c
}

// RecordUpstreamSuccess はチャットボット呼び出しの成功を記録する。
func (c *Collector) RecordUpstreamSuccess(operation string) {
	c.upstreamSuccess.WithLabelValues(operation).Inc()
}

// RecordUpstreamFailure はチャットボット呼び出しの失敗を記録する。
// reasonには "network"、"status"、"decode" などの分類を渡す。
func (c *Collector) RecordUpstreamFailure(operation string, reason string) {
	c.upstreamFail.WithLabelValues(operation, reason).Inc()
}

// RecordUpstreamLatency はチャットボット呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(operation string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSignIn はサインイン試行の結果を記録する。
func (c *Collector) RecordSignIn(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.signIn.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// statusRecorder はレスポンスのステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware はレスポンスのステータスコードをMetricsCollectorに記録するミドルウェアを返す。
func Middleware(c MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			c.RecordHTTPStatus(rec.status)
		})
	}
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordUpstreamSuccess(string)                {}
func (Nop) RecordUpstreamFailure(string, string)        {}
func (Nop) RecordUpstreamLatency(string, time.Duration) {}
func (Nop) RecordHTTPStatus(int)                        {}
func (Nop) RecordSignIn(bool)                           {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
