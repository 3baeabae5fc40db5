package tasks

import "github.com/prometheus/client_golang/prometheus"

// taskWrites counts successful writes; updates are labelled per patched field.
var taskWrites = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "taskboard_task_writes_total",
		Help: "Total number of successful task writes",
	},
	[]string{"op"},
)

func init() {
	prometheus.MustRegister(taskWrites)
}
