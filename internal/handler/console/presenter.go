package console

import (
	"fmt"
	"io"
	"sync"

	"ScanDesk/internal/domain/models"
	"ScanDesk/internal/handler/ws"
)

// Presenter prints scanner callbacks as plain lines, for the CLI.
type Presenter struct {
	mu  sync.Mutex
	out io.Writer
	tab models.Tab
}

func NewPresenter(out io.Writer) *Presenter {
	return &Presenter{out: out, tab: models.TabCall}
}

func (p *Presenter) printf(format string, a ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format+"\n", a...)
}

func (p *Presenter) OnScanStarted(info models.SessionInfo) {
	p.mu.Lock()
	p.tab = info.Tab
	p.mu.Unlock()
	p.printf("scanning %s on %s ...", info.Tab.Label(), info.Timeframe)
}

func (p *Presenter) OnProgress(pr models.SessionProgress) {
	p.printf("progress %d/%d", pr.Scanned, pr.Total)
}

func (p *Presenter) OnSignalMatched(m models.SignalMatch) {
	card, ok := m.Signal.Card(m.View.Timeframe, m.IsNew)
	if !ok {
		return
	}
	p.printCard(card)
}

func (p *Presenter) OnFinalize(s models.ScanSummary) {
	line := fmt.Sprintf("scan %s: %d signals, %d stocks scanned at %s",
		s.State, s.SignalsFound, s.StocksScanned, s.CompletedAt.Format("15:04:05"))
	if s.Error != "" {
		line += " (" + s.Error + ")"
	}
	p.printf("%s", line)
}

func (p *Presenter) OnEmptyResult(res models.EmptyResult) {
	p.mu.Lock()
	tab := p.tab
	p.mu.Unlock()
	p.printf("%s", ws.EmptyMessage(tab, res))
}

func (p *Presenter) OnAuthStateChanged(d models.AuthDecision) {
	switch {
	case d.Authorized:
		p.printf("license: authorized")
	case d.Message != "":
		p.printf("license: %s (%s)", d.State, d.Message)
	default:
		p.printf("license: %s", d.State)
	}
}

func (p *Presenter) OnSignalsRendered(view models.View, signals []models.StockSignal) {
	p.mu.Lock()
	p.tab = view.Tab
	p.mu.Unlock()
	if len(signals) == 0 {
		p.printf("%s", ws.EmptyMessage(view.Tab, models.EmptyResult{Reason: "no active signals"}))
		return
	}
	for _, sig := range signals {
		if card, ok := sig.Card(view.Timeframe, false); ok {
			p.printCard(card)
		}
	}
}

func (p *Presenter) printCard(c models.SignalCard) {
	marker := ""
	if c.IsNew {
		marker = " NEW"
	}
	p.printf("%-12s %s %-4s price=%.2f zone=%.2f-%.2f dist=%.2f%%%s  %s",
		c.Name, c.Label, c.PrimaryTimeframe, c.Price, c.LevelLow, c.LevelHigh, c.DistancePct, marker, c.ChartURL)
}
