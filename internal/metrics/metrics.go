// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層・ワーカー・ミドルウェアから利用する。
type MetricsCollector interface {
	RecordSignIn(success bool)
	RecordOTPIssued()
	RecordOTPVerified(success bool)
	RecordResetRequested()
	RecordResetCompleted(success bool)
	RecordMailOutcome(kind string, success bool)
	RecordHTTPStatus(statusCode int)
	RecordTokensSwept(table string, count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signIn         *prometheus.CounterVec
	otpIssued      prometheus.Counter
	otpVerified    *prometheus.CounterVec
	resetRequested prometheus.Counter
	resetCompleted *prometheus.CounterVec
	mailOutcome    *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	tokensSwept    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmnote_signin_total",
			Help: "サインイン試行の結果別合計数",
		}, []string{"result"}),
		otpIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmnote_otp_issued_total",
			Help: "メール認証OTP発行の合計数",
		}),
		otpVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmnote_otp_verified_total",
			Help: "メール認証OTP照合の結果別合計数",
		}, []string{"result"}),
		resetRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filmnote_reset_requested_total",
			Help: "パスワードリセット要求の合計数",
		}),
		resetCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmnote_reset_completed_total",
			Help: "パスワードリセット完了の結果別合計数",
		}, []string{"result"}),
		mailOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmnote_mail_total",
			Help: "トランザクションメール送信の種別・結果別合計数",
		}, []string{"kind", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmnote_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		tokensSwept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filmnote_tokens_swept_total",
			Help: "掃除ワーカーが削除した期限切れトークンのテーブル別合計数",
		}, []string{"table"}),
	}

	reg.MustRegister(
		c.signIn,
		c.otpIssued,
		c.otpVerified,
		c.resetRequested,
		c.resetCompleted,
		c.mailOutcome,
		c.httpStatus,
		c.tokensSwept,
	)

	return c
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordSignIn はサインイン試行の結果を記録する。
func (c *Collector) RecordSignIn(success bool) {
	c.signIn.WithLabelValues(resultLabel(success)).Inc()
}

// RecordOTPIssued はOTP発行を記録する。
func (c *Collector) RecordOTPIssued() {
	c.otpIssued.Inc()
}

// RecordOTPVerified はOTP照合の結果を記録する。
func (c *Collector) RecordOTPVerified(success bool) {
	c.otpVerified.WithLabelValues(resultLabel(success)).Inc()
}

// RecordResetRequested はリセット要求を記録する。
func (c *Collector) RecordResetRequested() {
	c.resetRequested.Inc()
}

// RecordResetCompleted はリセット完了の結果を記録する。
func (c *Collector) RecordResetCompleted(success bool) {
	c.resetCompleted.WithLabelValues(resultLabel(success)).Inc()
}

// RecordMailOutcome はメール送信の結果を種別付きで記録する。
func (c *Collector) RecordMailOutcome(kind string, success bool) {
	c.mailOutcome.WithLabelValues(kind, resultLabel(success)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordTokensSwept は掃除ワーカーが削除したトークン数を記録する。
func (c *Collector) RecordTokensSwept(table string, count int64) {
	c.tokensSwept.WithLabelValues(table).Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
