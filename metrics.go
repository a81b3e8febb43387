/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package exnotify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Notice delivery outcomes, the values of the "status" label.
const (
	statusDelivered = "delivered"
	statusFailed    = "failed"
	statusThrottled = "throttled"
	statusInvalid   = "invalid"
)

var (
	classifiedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exnotify_classified_total",
			Help: "Errors reaching the error boundary by verdict.",
		},
		[]string{"verdict"},
	)
	noticesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exnotify_notices_total",
			Help: "Notices by delivery status.",
		},
		[]string{"status"},
	)
	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "exnotify_delivery_duration_seconds",
			Help:    "Duration of notice deliveries.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"deliverer"},
	)
)
