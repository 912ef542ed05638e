package strategies

import (
	"context"

	"github.com/markcheno/go-talib"

	"StratRun/internal/domain/models"
	domsvc "StratRun/internal/domain/service"
	"StratRun/internal/services/patterns"
)

const (
	cupRSIPeriod = 60
	cupRSIExit   = 60.0
	cupEMAFast   = 15
	cupEMASlow   = 60
)

// CupHandleRSI enters on a cup retracement once per position and exits when RSI is
// stretched while the fast EMA is above the slow one.
type CupHandleRSI struct {
	base
	cup   patterns.CupConfig
	flags *flagSet
}

func NewCupHandleRSI(name string, p models.StrategyParams) *CupHandleRSI {
	return &CupHandleRSI{
		base:  base{name: name, kind: KindCupHandleRSI, params: p},
		cup:   patterns.DefaultCupConfig(),
		flags: newFlagSet(),
	}
}

func (s *CupHandleRSI) Evaluate(_ context.Context, symbol string, w models.Window) (models.Signal, error) {
	closes := w.Closes()
	flag := s.flags.get(symbol)
	cup, sw := patterns.CupRetracement(closes, s.cup)

	meta := swingMeta(sw)
	if meta == nil {
		meta = map[string]float64{}
	}
	meta["flag"] = float64(flag)

	if cup == 1 && flag == 0 {
		return s.signal(symbol, w, 1, meta), nil
	}
	if flag == 1 && len(closes) > cupEMASlow {
		rsi := last(talib.Rsi(closes, cupRSIPeriod))
		fast := last(talib.Ema(closes, cupEMAFast))
		slow := last(talib.Ema(closes, cupEMASlow))
		meta["rsi"], meta["ema_fast"], meta["ema_slow"] = rsi, fast, slow
		if rsi > cupRSIExit && fast-slow > 0 {
			return s.signal(symbol, w, -1, meta), nil
		}
	}
	return s.signal(symbol, w, 0, meta), nil
}

// Commit arms the flag on entry and clears it on exit.
func (s *CupHandleRSI) Commit(symbol string, sig models.Signal) {
	switch {
	case sig.Value > 0:
		s.flags.set(symbol, 1)
	case sig.Value < 0:
		s.flags.set(symbol, 0)
	}
}

func (s *CupHandleRSI) Flags() map[string]int { return s.flags.snapshot() }
func (s *CupHandleRSI) Reset()                { s.flags.reset() }

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}

var (
	_ domsvc.Strategy = (*CupHandleRSI)(nil)
	_ domsvc.Stateful = (*CupHandleRSI)(nil)
)
