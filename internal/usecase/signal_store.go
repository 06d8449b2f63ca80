package usecase

import (
	"sync"

	"ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"
)

// SignalStore holds the latest verdict per stock name, in insertion order.
// A repeated name replaces the earlier entry and moves to the end.
type SignalStore struct {
	mu      sync.RWMutex
	signals []models.StockSignal
	metrics drepo.Metrics
}

func NewSignalStore(metrics drepo.Metrics) *SignalStore {
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	return &SignalStore{metrics: metrics}
}

// Upsert stores sig, reporting whether an entry with the same name existed.
func (s *SignalStore) Upsert(sig models.StockSignal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var replaced bool
	s.signals, replaced = upsert(s.signals, sig)
	s.metrics.RecordStoreSize(len(s.signals))
	return replaced
}

// Replace swaps the whole contents. Duplicate names collapse as if each
// signal had been upserted in order.
func (s *SignalStore) Replace(signals []models.StockSignal) {
	next := make([]models.StockSignal, 0, len(signals))
	for _, sig := range signals {
		next, _ = upsert(next, sig)
	}

	s.mu.Lock()
	s.signals = next
	s.mu.Unlock()
	s.metrics.RecordStoreSize(len(next))
}

func upsert(list []models.StockSignal, sig models.StockSignal) ([]models.StockSignal, bool) {
	replaced := false
	kept := list[:0]
	for _, existing := range list {
		if existing.Name == sig.Name {
			replaced = true
			continue
		}
		kept = append(kept, existing)
	}
	return append(kept, sig), replaced
}

// FilterByDirection returns, in store order, the signals whose primary
// timeframe points in dir. Signals without a primary timeframe are excluded.
func (s *SignalStore) FilterByDirection(dir models.Direction) []models.StockSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.StockSignal, 0, len(s.signals))
	for _, sig := range s.signals {
		if sig.Matches(dir) {
			out = append(out, sig)
		}
	}
	return out
}

// All returns a copy of every stored signal.
func (s *SignalStore) All() []models.StockSignal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StockSignal, len(s.signals))
	copy(out, s.signals)
	return out
}

func (s *SignalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.signals)
}
