// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordPostCreated()
	RecordReaction(reactionType, result string)
	RecordCheckoutSession(kind string)
	RecordWebhookEvent(eventType, outcome string)
	RecordUpload(source string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	postsCreated     prometheus.Counter
	reactions        *prometheus.CounterVec
	checkoutSessions *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	uploads          *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postpay_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postpay_reactions_total",
			Help: "リアクション種別と結果（added/removed/switched）別のトグル数",
		}, []string{"type", "result"}),
		checkoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postpay_checkout_sessions_total",
			Help: "作成されたチェックアウトセッション数",
		}, []string{"kind"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postpay_webhook_events_total",
			Help: "受信したWebhookイベントの種別と処理結果別の数",
		}, []string{"type", "outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postpay_uploads_total",
			Help: "保存されたメディアファイル数",
		}, []string{"source"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postpay_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.postsCreated,
		c.reactions,
		c.checkoutSessions,
		c.webhookEvents,
		c.uploads,
		c.httpStatus,
	)

	return c
}

// RecordPostCreated は投稿作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordReaction はリアクションのトグルを記録する。
func (c *Collector) RecordReaction(reactionType, result string) {
	c.reactions.WithLabelValues(reactionType, result).Inc()
}

// RecordCheckoutSession はチェックアウトセッション作成を記録する。
func (c *Collector) RecordCheckoutSession(kind string) {
	c.checkoutSessions.WithLabelValues(kind).Inc()
}

// RecordWebhookEvent はWebhookイベントの処理結果を記録する。
func (c *Collector) RecordWebhookEvent(eventType, outcome string) {
	c.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// RecordUpload はメディア保存を記録する。
func (c *Collector) RecordUpload(source string) {
	c.uploads.WithLabelValues(source).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordPostCreated() {}
func (Nop) RecordReaction(_, _ string) {}
func (Nop) RecordCheckoutSession(_ string) {}
func (Nop) RecordWebhookEvent(_, _ string) {}
func (Nop) RecordUpload(_ string) {}
func (Nop) RecordHTTPStatus(_ int) {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
