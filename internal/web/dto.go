package web

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/budgetanalyzer/transactions/internal/config"
	"github.com/budgetanalyzer/transactions/internal/model"
	"github.com/budgetanalyzer/transactions/internal/store"
)

type transactionResponse struct {
	ID              int64       `json:"id"`
	AccountID       string      `json:"accountId"`
	BankName        string      `json:"bankName"`
	CurrencyISOCode string      `json:"currencyIsoCode"`
	Date            string      `json:"date"`
	Amount          json.Number `json:"amount"`
	Type            string      `json:"type"`
	Description     string      `json:"description"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

func toResponse(t model.Transaction) transactionResponse {
	return transactionResponse{
		ID:              t.ID,
		AccountID:       t.AccountID,
		BankName:        t.BankName,
		CurrencyISOCode: t.CurrencyISOCode,
		Date:            t.DateString(),
		Amount:          json.Number(t.Amount.StringFixed(2)),
		Type:            string(t.Type),
		Description:     t.Description,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toResponses(txns []model.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txns))
	for i, t := range txns {
		out[i] = toResponse(t)
	}
	return out
}

type importResponse struct {
	BatchID      string                `json:"batchId"`
	Files        int                   `json:"files"`
	Skipped      int                   `json:"skipped"`
	Transactions []transactionResponse `json:"transactions"`
}

type updateRequest struct {
	Description *string `json:"description"`
	AccountID   *string `json:"accountId"`
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type bulkDeleteResponse struct {
	DeletedCount int     `json:"deletedCount"`
	NotFoundIDs  []int64 `json:"notFoundIds"`
}

type summaryResponse struct {
	MonthlyDebitTotals  map[string]json.Number `json:"monthlyDebitTotals"`
	AverageMonthlyTotal json.Number            `json:"averageMonthlyTotal"`
}

type formatResponse struct {
	Key                    string `json:"key"`
	BankName               string `json:"bankName"`
	DefaultCurrencyISOCode string `json:"defaultCurrencyIsoCode"`
	DateHeader             string `json:"dateHeader"`
	DateFormat             string `json:"dateFormat"`
	DescriptionHeader      string `json:"descriptionHeader"`
	DebitHeader            string `json:"debitHeader"`
	CreditHeader           string `json:"creditHeader"`
	TypeHeader             string `json:"typeHeader,omitempty"`
}

func toFormatResponse(key string, c config.CsvConfig) formatResponse {
	return formatResponse{
		Key:                    key,
		BankName:               c.BankName,
		DefaultCurrencyISOCode: c.DefaultCurrencyISOCode,
		DateHeader:             c.DateHeader,
		DateFormat:             c.DateFormat,
		DescriptionHeader:      c.DescriptionHeader,
		DebitHeader:            c.DebitHeader,
		CreditHeader:           c.CreditHeader,
		TypeHeader:             c.TypeHeader,
	}
}

// searchRequest is the filter accepted both as query parameters and as the
// admin search body. Dates are YYYY-MM-DD; timestamps are RFC 3339.
type searchRequest struct {
	ID              *int64           `json:"id"`
	AccountID       string           `json:"accountId"`
	BankName        string           `json:"bankName"`
	CurrencyISOCode string           `json:"currencyIsoCode"`
	Description     string           `json:"description"`
	Type            string           `json:"type"`
	DateFrom        string           `json:"dateFrom"`
	DateTo          string           `json:"dateTo"`
	MinAmount       *decimal.Decimal `json:"minAmount"`
	MaxAmount       *decimal.Decimal `json:"maxAmount"`
	CreatedAfter    *time.Time       `json:"createdAfter"`
	CreatedBefore   *time.Time       `json:"createdBefore"`
	UpdatedAfter    *time.Time       `json:"updatedAfter"`
	UpdatedBefore   *time.Time       `json:"updatedBefore"`
	Limit           int              `json:"limit"`
	Offset          int              `json:"offset"`
}

func (req searchRequest) filter() (store.Filter, error) {
	f := store.Filter{
		ID:              req.ID,
		AccountID:       req.AccountID,
		BankName:        req.BankName,
		CurrencyISOCode: req.CurrencyISOCode,
		Description:     req.Description,
		MinAmount:       req.MinAmount,
		MaxAmount:       req.MaxAmount,
		CreatedAfter:    req.CreatedAfter,
		CreatedBefore:   req.CreatedBefore,
		UpdatedAfter:    req.UpdatedAfter,
		UpdatedBefore:   req.UpdatedBefore,
		Limit:           req.Limit,
		Offset:          req.Offset,
	}

	if req.Type != "" {
		t, ok := model.ParseTransactionType(req.Type)
		if !ok {
			return store.Filter{}, fmt.Errorf("%w: unknown transaction type %q", errBadRequest, req.Type)
		}
		f.Type = t
	}

	var err error
	if f.DateFrom, err = parseDateParam("dateFrom", req.DateFrom); err != nil {
		return store.Filter{}, err
	}
	if f.DateTo, err = parseDateParam("dateTo", req.DateTo); err != nil {
		return store.Filter{}, err
	}
	return f, nil
}

func parseDateParam(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(model.DateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", errBadRequest, name, v)
	}
	return &t, nil
}

// searchFromQuery reads a searchRequest from URL query parameters.
func searchFromQuery(q url.Values) (searchRequest, error) {
	req := searchRequest{
		AccountID:       q.Get("accountId"),
		BankName:        q.Get("bankName"),
		CurrencyISOCode: q.Get("currencyIsoCode"),
		Description:     q.Get("description"),
		Type:            q.Get("type"),
		DateFrom:        q.Get("dateFrom"),
		DateTo:          q.Get("dateTo"),
	}

	var err error
	if v := q.Get("id"); v != "" {
		id, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return searchRequest{}, fmt.Errorf("%w: id must be an integer, got %q", errBadRequest, v)
		}
		req.ID = &id
	}
	if req.MinAmount, err = decimalParam(q, "minAmount"); err != nil {
		return searchRequest{}, err
	}
	if req.MaxAmount, err = decimalParam(q, "maxAmount"); err != nil {
		return searchRequest{}, err
	}
	for name, dst := range map[string]**time.Time{
		"createdAfter":  &req.CreatedAfter,
		"createdBefore": &req.CreatedBefore,
		"updatedAfter":  &req.UpdatedAfter,
		"updatedBefore": &req.UpdatedBefore,
	} {
		if *dst, err = timeParam(q, name); err != nil {
			return searchRequest{}, err
		}
	}
	if req.Limit, err = intParam(q, "limit"); err != nil {
		return searchRequest{}, err
	}
	if req.Offset, err = intParam(q, "offset"); err != nil {
		return searchRequest{}, err
	}
	return req, nil
}

func decimalParam(q url.Values, name string) (*decimal.Decimal, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number, got %q", errBadRequest, name, v)
	}
	return &d, nil
}

func timeParam(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC 3339 timestamp, got %q", errBadRequest, name, v)
	}
	return &t, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errBadRequest, name, v)
	}
	return n, nil
}
