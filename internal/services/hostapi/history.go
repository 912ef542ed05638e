package hostapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StratRun/internal/domain/models"
	domrepo "StratRun/internal/domain/repository"
	"StratRun/pkg/util"
)

const historyPath = "/history"

type historyRequest struct {
	Symbols   []string `json:"symbols"`
	Bars      int      `json:"bars"`
	Frequency string   `json:"frequency"`
}

// bar timestamps may be RFC3339 strings or unix seconds/millis.
type historyBar struct {
	T json.RawMessage `json:"t"`
	O float64         `json:"o"`
	H float64         `json:"h"`
	L float64         `json:"l"`
	C float64         `json:"c"`
	V float64         `json:"v"`
}

type historyResponse struct {
	Data   map[string][]historyBar `json:"data"`
	Errors map[string]string       `json:"errors,omitempty"`
}

// HistoryClient fetches OHLCV windows from the host's data service.
type HistoryClient struct {
	*HTTPServiceBase
}

func NewHistoryClient(baseURL string, timeout time.Duration, attempts int) *HistoryClient {
	return &HistoryClient{HTTPServiceBase: NewHTTPServiceBase(baseURL, timeout, attempts)}
}

// History fails when the host reports an error or omits any requested symbol.
func (c *HistoryClient) History(ctx context.Context, symbols []string, bars int, tf domrepo.Timeframe) (map[string]models.Window, error) {
	var resp historyResponse
	req := historyRequest{Symbols: symbols, Bars: bars, Frequency: string(tf)}
	if err := c.PostJSON(ctx, historyPath, req, &resp); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	out := make(map[string]models.Window, len(symbols))
	for _, sym := range symbols {
		if msg, bad := resp.Errors[sym]; bad {
			return nil, fmt.Errorf("history %s: %s", sym, msg)
		}
		raw, ok := resp.Data[sym]
		if !ok {
			return nil, fmt.Errorf("history %s: missing from response", sym)
		}
		w := models.Window{Symbol: sym, Frequency: string(tf), Candles: make([]models.Candle, 0, len(raw))}
		for i, b := range raw {
			at, ok := util.ParseJSONTime(b.T)
			if !ok {
				return nil, fmt.Errorf("history %s: bar %d has bad time %s", sym, i, b.T)
			}
			w.Candles = append(w.Candles, models.Candle{
				Bucket: at, Symbol: sym, Open: b.O, High: b.H, Low: b.L, Close: b.C, Volume: b.V,
			})
		}
		out[sym] = w
	}
	return out, nil
}

var _ domrepo.HistoryProvider = (*HistoryClient)(nil)
