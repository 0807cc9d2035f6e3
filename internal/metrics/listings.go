package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var listingChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "carelistings",
		Subsystem: "listings",
		Name:      "changes_total",
		Help:      "按表与类型统计的已发布变更事件总数。",
	},
	[]string{"table", "type"},
)

// CountListingChange 记录一条已发布的变更事件。
func CountListingChange(table, eventType string) {
	listingChangesTotal.WithLabelValues(table, eventType).Inc()
}
