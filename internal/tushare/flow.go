package tushare

import (
	"context"
	"log/slog"
	"time"

	"marketdata/internal/fetcher"
	"marketdata/internal/model"
)

// FlowAdapter fetches market-microstructure datasets: per-day money-flow
// breakdowns and margin-trading balances keyed by trade date, plus ownership
// figures (shareholder count, top-10 holder concentration) keyed by reporting
// period end. Rows are independent per date; the only merge step is
// deduplication by date.
type FlowAdapter struct {
	client *Client
}

// NewFlowAdapter creates a market-flow adapter over the shared client.
func NewFlowAdapter(client *Client) *FlowAdapter {
	return &FlowAdapter{client: client}
}

// Name identifies the adapter
func (a *FlowAdapter) Name() string { return "tushare:market_flow" }

// Fetch retrieves money-flow rows, joins margin balances onto them by trade
// date, and joins holder-count and top-10 concentration figures by reporting
// period end.
func (a *FlowAdapter) Fetch(ctx context.Context, key model.RequestKey) (*model.Record, error) {
	params := map[string]string{
		"ts_code":    key.Symbol,
		"start_date": model.Compact(key.Range.Start),
		"end_date":   model.Compact(key.Range.End),
	}

	res, err := a.client.Call(ctx, "moneyflow", params,
		"ts_code,trade_date,buy_lg_amount,sell_lg_amount,buy_sm_amount,sell_sm_amount,net_mf_amount")
	if err != nil {
		return nil, err
	}

	byDate := make(map[time.Time]model.FlowRow, res.Len())
	for i := 0; i < res.Len(); i++ {
		row := res.Row(i)
		date, err := model.ParseDate(row.Str("trade_date"))
		if err != nil {
			return nil, fetcher.NewPermanentError("unparseable trade_date: " + row.Str("trade_date"))
		}
		byDate[date] = model.FlowRow{
			TradeDate: date,
			BuyLarge:  row.Float("buy_lg_amount"),
			SellLarge: row.Float("sell_lg_amount"),
			BuySmall:  row.Float("buy_sm_amount"),
			SellSmall: row.Float("sell_sm_amount"),
			NetAmount: row.Float("net_mf_amount"),
		}
	}

	margin, err := a.client.Call(ctx, "margin_detail", params, "trade_date,ts_code,rzye,rqye")
	if err != nil {
		return nil, err
	}
	for i := 0; i < margin.Len(); i++ {
		row := margin.Row(i)
		date, err := model.ParseDate(row.Str("trade_date"))
		if err != nil {
			continue
		}
		fr := byDate[date]
		fr.TradeDate = date
		fr.MarginBalance = row.Float("rzye")
		fr.ShortBalance = row.Float("rqye")
		byDate[date] = fr
	}

	holders, err := a.client.Call(ctx, "stk_holdernumber", params, "ts_code,ann_date,end_date,holder_num")
	if err != nil {
		return nil, err
	}
	for i := 0; i < holders.Len(); i++ {
		row := holders.Row(i)
		date, err := model.ParseDate(row.Str("end_date"))
		if err != nil {
			continue
		}
		fr := byDate[date]
		fr.TradeDate = date
		fr.HolderCount = row.Float("holder_num")
		byDate[date] = fr
	}

	top10, err := a.client.Call(ctx, "top10_holders", params, "ts_code,ann_date,end_date,holder_name,hold_ratio")
	if err != nil {
		return nil, err
	}
	// One row per holder per period; concentration is the summed ratio.
	for i := 0; i < top10.Len(); i++ {
		row := top10.Row(i)
		date, err := model.ParseDate(row.Str("end_date"))
		if err != nil {
			continue
		}
		fr := byDate[date]
		fr.TradeDate = date
		fr.Top10HoldRatio += row.Float("hold_ratio")
		byDate[date] = fr
	}

	rows := make([]model.FlowRow, 0, len(byDate))
	for _, fr := range byDate {
		rows = append(rows, fr)
	}
	rows = model.MergeFlows(rows)

	slog.Info("fetched market flow", "symbol", key.Symbol, "rows", len(rows))

	return &model.Record{Kind: model.KindMarketFlow, Symbol: key.Symbol, Flows: rows}, nil
}
