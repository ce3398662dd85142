package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhook_events_total",
		Help: "Webhook events received, by event type.",
	}, []string{"type"})

	TemplateReplies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_template_replies_total",
		Help: "Replies answered from a pre-authored template.",
	})

	GenerativeReplies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_generative_replies_total",
		Help: "Replies answered by the generative fallback.",
	})

	RenderFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_render_fallbacks_total",
		Help: "Template renders that fell back to diagnostic text.",
	})

	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_delivery_failures_total",
		Help: "Outbound LINE sends that failed.",
	})
)
