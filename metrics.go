package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SuccessfulRequests *prometheus.CounterVec
	BadRequests        *prometheus.CounterVec
	Signups            *prometheus.CounterVec
	MessagesSent       *prometheus.CounterVec
	FollowRequests     *prometheus.CounterVec
	UnfollowRequests   *prometheus.CounterVec
	LikeToggles        *prometheus.CounterVec
}

func InitMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SuccessfulRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_request",
				Help: "Total number of successful (2xx/3xx) HTTP requests",
			},
			[]string{"path"},
		),
		BadRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unsuccessful_request",
				Help: "Total number of unsuccessful (4xx) HTTP requests",
			},
			[]string{"path"},
		),
		Signups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_signup",
				Help: "Total number of successful signups",
			},
			[]string{"path"},
		),
		MessagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_message",
				Help: "Total number of successfully posted messages",
			},
			[]string{"path"},
		),
		FollowRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_follows",
				Help: "Total number of successful follow requests",
			},
			[]string{"path"},
		),
		UnfollowRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_unfollows",
				Help: "Total number of successful unfollow requests",
			},
			[]string{"path"},
		),
		LikeToggles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "successful_like_toggles",
				Help: "Total number of successful like/unlike toggles",
			},
			[]string{"path"},
		),
	}

	m.registry.MustRegister(
		m.SuccessfulRequests,
		m.BadRequests,
		m.Signups,
		m.MessagesSent,
		m.FollowRequests,
		m.UnfollowRequests,
		m.LikeToggles,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
