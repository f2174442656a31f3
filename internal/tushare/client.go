// Package tushare implements provider adapters for the tushare pro HTTP API:
// candle bars, financial statements, money-flow/margin data and news for
// CN/HK-listed symbols. The API is a single POST endpoint taking
// {api_name, token, params, fields} and answering {code, msg, data:{fields,
// items}} with rows as positional arrays.
package tushare

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
	"resty.dev/v3"

	"marketdata/internal/fetcher"
)

// Client is a thin wrapper over the tushare POST protocol shared by all
// tushare adapters.
type Client struct {
	http  *resty.Client
	token string
}

// NewClient creates a client for the given endpoint and token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		http:  fetcher.NewHTTPClient(baseURL),
		token: token,
	}
}

type apiRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

// Result is one API response: a field-name header plus positional rows.
type Result struct {
	fields map[string]int
	items  []gjson.Result
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.items) }

// Row returns the i-th row.
func (r *Result) Row(i int) Row {
	return Row{fields: r.fields, cols: r.items[i].Array()}
}

// Row is one positional row with by-name column access. Missing columns
// read as zero values.
type Row struct {
	fields map[string]int
	cols   []gjson.Result
}

// Str returns the named column as a string.
func (r Row) Str(name string) string {
	if i, ok := r.fields[name]; ok && i < len(r.cols) {
		return r.cols[i].String()
	}
	return ""
}

// Float returns the named column as a float64.
func (r Row) Float(name string) float64 {
	if i, ok := r.fields[name]; ok && i < len(r.cols) {
		return r.cols[i].Float()
	}
	return 0
}

// Call performs one API request and decodes the row envelope. Errors are
// returned already classified.
func (c *Client) Call(ctx context.Context, apiName string, params map[string]string, fields string) (*Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(apiRequest{APIName: apiName, Token: c.token, Params: params, Fields: fields}).
		Post("")
	if err != nil {
		return nil, fetcher.Classify(err)
	}
	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPStatus(resp.StatusCode())
	}

	root := gjson.Parse(resp.String())
	if code := root.Get("code").Int(); code != 0 {
		return nil, classifyAPIError(root.Get("msg").String())
	}

	res := &Result{
		fields: make(map[string]int),
		items:  root.Get("data.items").Array(),
	}
	for i, f := range root.Get("data.fields").Array() {
		res.fields[f.String()] = i
	}
	return res, nil
}

// classifyAPIError maps tushare's in-band error messages onto the error
// taxonomy. The API reports rate limiting and auth problems with code != 0
// and a CN message rather than an HTTP status.
func classifyAPIError(msg string) *fetcher.FetchError {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "每分钟"), strings.Contains(msg, "访问频率"), strings.Contains(msg, "最多访问"):
		return fetcher.NewTransientError("rate limited by tushare: "+msg, nil)
	case strings.Contains(lower, "token"), strings.Contains(msg, "权限"), strings.Contains(msg, "积分"):
		return fetcher.NewPermanentError("tushare rejected request: " + msg)
	default:
		return fetcher.NewUnknownError("tushare error: "+msg, nil)
	}
}
