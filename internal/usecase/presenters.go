package usecase

import (
	"ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"
)

// MultiPresenter fans every callback out to its members in order.
type MultiPresenter []drepo.Presenter

func NewMultiPresenter(ps ...drepo.Presenter) MultiPresenter {
	out := make(MultiPresenter, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m MultiPresenter) OnScanStarted(info models.SessionInfo) {
	for _, p := range m {
		p.OnScanStarted(info)
	}
}

func (m MultiPresenter) OnProgress(pr models.SessionProgress) {
	for _, p := range m {
		p.OnProgress(pr)
	}
}

func (m MultiPresenter) OnSignalMatched(match models.SignalMatch) {
	for _, p := range m {
		p.OnSignalMatched(match)
	}
}

func (m MultiPresenter) OnFinalize(summary models.ScanSummary) {
	for _, p := range m {
		p.OnFinalize(summary)
	}
}

func (m MultiPresenter) OnEmptyResult(res models.EmptyResult) {
	for _, p := range m {
		p.OnEmptyResult(res)
	}
}

func (m MultiPresenter) OnAuthStateChanged(d models.AuthDecision) {
	for _, p := range m {
		p.OnAuthStateChanged(d)
	}
}

func (m MultiPresenter) OnSignalsRendered(view models.View, signals []models.StockSignal) {
	for _, p := range m {
		p.OnSignalsRendered(view, signals)
	}
}
