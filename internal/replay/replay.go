// Package replay streams historical trades from CSV onto the trade topic.
package replay

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"rsi-engine/internal/codec"
	"rsi-engine/internal/model"

	"github.com/shopspring/decimal"
)

// Columns lists the required CSV header fields.
var Columns = []string{"token_address", "price_in_sol", "block_time", "tx_hash", "pool_address"}

// Options controls a replay run.
type Options struct {
	Topic string
	Delay time.Duration // pause between sends
	Log   *slog.Logger
}

// header maps column name to index.
type header map[string]int

func parseHeader(rec []string) (header, error) {
	h := make(header, len(rec))
	for i, name := range rec {
		h[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, c := range Columns {
		if _, ok := h[c]; !ok {
			return nil, fmt.Errorf("csv header missing column %q", c)
		}
	}
	return h, nil
}

// ParseRow builds a TradeEvent from one CSV record.
func (h header) ParseRow(rec []string) (model.TradeEvent, error) {
	get := func(col string) string {
		if i := h[col]; i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	token := get("token_address")
	if token == "" {
		return model.TradeEvent{}, errors.New("empty token_address")
	}
	price, err := decimal.NewFromString(get("price_in_sol"))
	if err != nil {
		return model.TradeEvent{}, fmt.Errorf("price_in_sol: %w", err)
	}

	return model.TradeEvent{
		TokenAddress: token,
		PriceInSol:   price.InexactFloat64(),
		BlockTime:    get("block_time"),
		TxHash:       get("tx_hash"),
		PoolAddress:  get("pool_address"),
	}, nil
}

// Run reads CSV rows from r and sends each to sink keyed by instrument.
// Bad rows and failed sends are logged and skipped. It returns the number
// of rows sent; the error is non-nil only for an unreadable header or a
// cancelled context.
func Run(ctx context.Context, r io.Reader, sink model.MessageSink, opts Options) (int, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	h, err := parseHeader(first)
	if err != nil {
		return 0, err
	}

	sent := 0
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		rec, err := cr.Read()
		if err == io.EOF {
			return sent, nil
		}
		if err != nil {
			log.Warn("skipping unreadable row", slog.Int("line", line), slog.Any("err", err))
			continue
		}

		tr, err := h.ParseRow(rec)
		if err != nil {
			log.Warn("skipping bad row", slog.Int("line", line), slog.Any("err", err))
			continue
		}
		payload, err := codec.EncodeTrade(tr)
		if err != nil {
			log.Warn("skipping unencodable row", slog.Int("line", line), slog.Any("err", err))
			continue
		}
		if err := sink.Send(ctx, opts.Topic, tr.TokenAddress, payload); err != nil {
			log.Error("send failed", slog.Int("line", line), slog.String("token", tr.TokenAddress), slog.Any("err", err))
			continue
		}
		sent++
		log.Debug("sent trade", slog.String("token", tr.TokenAddress))

		if opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-ctx.Done():
				return sent, ctx.Err()
			}
		}
	}
}
