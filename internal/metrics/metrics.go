package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersApprovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_orders_approved_total",
		Help: "Total number of approve decisions committed.",
	})

	OrdersRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_orders_rejected_total",
		Help: "Total number of reject decisions committed.",
	})

	GateViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_gate_violations_total",
		Help: "Total number of decisions refused by the verification gate.",
	},
		[]string{"action"},
	)

	OrderListRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_order_list_requests_total",
		Help: "Total number of order list queries served.",
	})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation"},
	)
)
