package aggregator

import (
	"sync"

	"trendpulse/internal/models"
)

// VolumeBaseline remembers each trend's volume from the previous
// aggregation run and derives growth as the percentage change against it.
// A trend seen for the first time has no baseline and therefore no growth.
type VolumeBaseline struct {
	mu      sync.RWMutex
	volumes map[string]int
}

func NewVolumeBaseline() *VolumeBaseline {
	return &VolumeBaseline{volumes: make(map[string]int)}
}

// Growth returns the percentage change of volume against the recorded
// baseline, or nil when no baseline exists or the baseline volume is zero.
func (b *VolumeBaseline) Growth(platform models.Platform, name string, volume int) *float64 {
	b.mu.RLock()
	prev, ok := b.volumes[baselineKey(platform, name)]
	b.mu.RUnlock()

	if !ok || prev <= 0 {
		return nil
	}
	growth := (float64(volume) - float64(prev)) / float64(prev) * 100
	return &growth
}

// Record stores the volumes of a completed run as the baseline for the
// next one. Only platforms present in trends are touched, so a provider
// outage does not erase its history.
func (b *VolumeBaseline) Record(trends map[models.Platform][]models.TrendRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for platform, records := range trends {
		for _, r := range records {
			b.volumes[baselineKey(platform, r.Name)] = r.Volume
		}
	}
}

// Hydrate seeds the baseline from a persisted snapshot, typically the
// latest one loaded at startup.
func (b *VolumeBaseline) Hydrate(snap models.Snapshot) {
	b.Record(snap.Trends)
}

func baselineKey(platform models.Platform, name string) string {
	return string(platform) + "|" + name
}
