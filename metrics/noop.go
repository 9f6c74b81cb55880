package metrics

import "time"

// NoopRecorder drops all measurements. It is the default for library use;
// the daemon swaps in the Prometheus recorder when metrics are enabled.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
