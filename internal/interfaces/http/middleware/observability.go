package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/infrastructure/monitoring"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

// Observability wraps every request in a server span, records the request
// metrics and writes one access log line. Metric labels use the route
// template rather than the raw path to keep cardinality bounded.
// Observability 将每个请求包裹在服务端 span 中，记录请求指标并写入一条
// 访问日志。指标标签使用路由模板而非原始路径，以控制基数。
func Observability(tracing *monitoring.TracingManager, metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {
	propagator := propagation.TraceContext{}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracing.StartSpan(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		metrics.HTTPRequestStarted(path, method)
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.HTTPRequestFinished(path, method, status, elapsed)

		span.SetAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
			attribute.Int("http.status_code", status),
		)

		log.Info(c.Request.Context(), "Request processed",
			logger.String("method", method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Duration("latency_ms", elapsed),
			logger.String("client_ip", c.ClientIP()),
		)
	}
}
