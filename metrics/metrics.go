// Package metrics defines the recorder behind the facilitator's event
// counters (verify_valid, verify_invalid, settle_confirmed, settle_failed)
// and operation latency histograms.
package metrics

import "time"

// Recorder receives facilitator measurements. The name identifies the event
// or operation; labels carry at least the network.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
