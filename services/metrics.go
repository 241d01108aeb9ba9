package services

import "github.com/prometheus/client_golang/prometheus"

var (
	reloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reloads_total",
			Help: "Number of catalog reloads by result.",
		},
		[]string{"result"},
	)
	reloadFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reload_failures_total",
			Help: "Number of failed catalog reloads by failure kind.",
		},
		[]string{"kind"},
	)
	catalogIssues = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_issues",
		Help: "Number of issues in the current catalog.",
	})
	catalogArticles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_articles",
		Help: "Number of articles in the current catalog.",
	})
	skippedRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_skipped_rows_total",
			Help: "Rows skipped during normalization by reason.",
		},
		[]string{"reason"},
	)
	searchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_searches_total",
		Help: "Number of search requests served.",
	})
)

func init() {
	prometheus.MustRegister(reloadsTotal, reloadFailuresTotal, catalogIssues, catalogArticles, skippedRowsTotal, searchesTotal)
}

// CountSearch zählt eine ausgeführte Suche.
func CountSearch() {
	searchesTotal.Inc()
}
