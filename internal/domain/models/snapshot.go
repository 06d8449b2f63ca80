package models

// DefaultSnapshotTotal is the universe size assumed when a snapshot omits it.
const DefaultSnapshotTotal = 501

// Snapshot is the batch payload served by the offline/mock endpoint.
type Snapshot struct {
	Success      bool          `json:"success"`
	Signals      []StockSignal `json:"signals"`
	TotalStocks  *int          `json:"total_stocks,omitempty"`
	SignalsFound *int          `json:"signals_found,omitempty"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Total returns the reported universe size, or DefaultSnapshotTotal when it
// is absent or zero.
func (s *Snapshot) Total() int {
	if s.TotalStocks == nil || *s.TotalStocks == 0 {
		return DefaultSnapshotTotal
	}
	return *s.TotalStocks
}

// Found returns the reported signal count, zero when absent.
func (s *Snapshot) Found() int {
	if s.SignalsFound == nil {
		return 0
	}
	return *s.SignalsFound
}
