package connector

import (
	"sync"

	"solana-token-sniper/internal/domain"
)

// Merge fans the event streams of multiple connectors into one channel.
// Arrival order within a single connector is preserved; no cross-connector
// ordering is guaranteed. The merged channel closes once every connector's
// channel has closed (i.e. after all connectors are stopped).
func Merge(connectors ...SourceConnector) <-chan domain.RawEvent {
	merged := make(chan domain.RawEvent, 512)

	var wg sync.WaitGroup
	for _, c := range connectors {
		wg.Add(1)
		go func(events <-chan domain.RawEvent) {
			defer wg.Done()
			for ev := range events {
				merged <- ev
			}
		}(c.Events())
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	return merged
}
