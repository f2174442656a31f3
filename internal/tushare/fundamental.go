package tushare

import (
	"context"
	"log/slog"
	"strings"

	"marketdata/internal/fetcher"
	"marketdata/internal/model"
)

// statementSpec describes one statement API: its name, row type and the
// numeric line items to request.
type statementSpec struct {
	api   string
	typ   model.StatementType
	items []string
}

var statementSpecs = []statementSpec{
	{
		api:   "income",
		typ:   model.StatementIncome,
		items: []string{"total_revenue", "oper_cost", "total_profit", "n_income", "basic_eps"},
	},
	{
		api:   "balancesheet",
		typ:   model.StatementBalance,
		items: []string{"total_assets", "total_liab", "total_hldr_eqy_exc_min_int", "money_cap"},
	},
	{
		api:   "cashflow",
		typ:   model.StatementCashflow,
		items: []string{"n_cashflow_act", "n_cashflow_inv_act", "n_cash_flows_fnc_act", "free_cashflow"},
	},
}

// FundamentalsAdapter fetches income, balance-sheet and cash-flow statements
// for a symbol over a period range. Restated periods are resolved
// last-write-wins by announcement date.
type FundamentalsAdapter struct {
	client *Client
}

// NewFundamentalsAdapter creates a fundamentals adapter over the shared client.
func NewFundamentalsAdapter(client *Client) *FundamentalsAdapter {
	return &FundamentalsAdapter{client: client}
}

// Name identifies the adapter
func (a *FundamentalsAdapter) Name() string { return "tushare:fundamentals" }

// Fetch retrieves all three statement types and merges them into one record
// ordered by period end.
func (a *FundamentalsAdapter) Fetch(ctx context.Context, key model.RequestKey) (*model.Record, error) {
	params := map[string]string{
		"ts_code":    key.Symbol,
		"start_date": model.Compact(key.Range.Start),
		"end_date":   model.Compact(key.Range.End),
	}

	var rows []model.StatementRow
	for _, spec := range statementSpecs {
		fields := "ts_code,ann_date,end_date," + strings.Join(spec.items, ",")
		res, err := a.client.Call(ctx, spec.api, params, fields)
		if err != nil {
			return nil, err
		}

		for i := 0; i < res.Len(); i++ {
			row := res.Row(i)
			periodEnd, err := model.ParseDate(row.Str("end_date"))
			if err != nil {
				return nil, fetcher.NewPermanentError("unparseable end_date: " + row.Str("end_date"))
			}
			// ann_date can be empty for pre-announcement rows; the zero
			// time sorts before any real restatement.
			reportDate, _ := model.ParseDate(row.Str("ann_date"))

			items := make(map[string]float64, len(spec.items))
			for _, name := range spec.items {
				items[name] = row.Float(name)
			}
			rows = append(rows, model.StatementRow{
				Type:       spec.typ,
				PeriodEnd:  periodEnd,
				ReportDate: reportDate,
				Items:      items,
			})
		}
	}

	rows = model.MergeStatements(rows)
	slog.Info("fetched fundamentals", "symbol", key.Symbol, "rows", len(rows))

	return &model.Record{Kind: model.KindFundamentals, Symbol: key.Symbol, Statements: rows}, nil
}
