package finance

import (
	"context"

	"yfmcp/internal/domain/market"
)

var infoModules = []string{"assetProfile", "summaryProfile", "quoteType", "price", "summaryDetail", "defaultKeyStatistics", "financialData"}

// dateFields hold epoch seconds in quoteSummary records and are rendered as
// calendar dates.
var dateFields = map[string]bool{
	"endDate":            true,
	"reportDate":         true,
	"startDate":          true,
	"latestTransDate":    true,
	"positionDirectDate": true,
	"epochGradeDate":     true,
	"quarter":            true,
}

type StockInfo struct {
	Symbol string         `json:"symbol"`
	Info   map[string]any `json:"info"`
}

type statementSource struct {
	dataType string
	yearly   string
	quarter  string
	listKey  string
}

var (
	incomeStatementSource = statementSource{"income statement", "incomeStatementHistory", "incomeStatementHistoryQuarterly", "incomeStatementHistory"}
	balanceSheetSource    = statementSource{"balance sheet", "balanceSheetHistory", "balanceSheetHistoryQuarterly", "balanceSheetStatements"}
	cashflowSource        = statementSource{"cash flow", "cashflowStatementHistory", "cashflowStatementHistoryQuarterly", "cashflowStatements"}
)

// Statement maps a period end date to the line items reported for it.
type Statement map[string]map[string]any

type IncomeStatement struct {
	Symbol          string    `json:"symbol"`
	Frequency       string    `json:"frequency"`
	IncomeStatement Statement `json:"income_statement"`
}

type BalanceSheet struct {
	Symbol       string    `json:"symbol"`
	Frequency    string    `json:"frequency"`
	BalanceSheet Statement `json:"balance_sheet"`
}

type Cashflow struct {
	Symbol    string    `json:"symbol"`
	Frequency string    `json:"frequency"`
	Cashflow  Statement `json:"cashflow"`
}

type holderSource struct {
	module  string
	listKey string
}

var holderSources = map[string]holderSource{
	"major_holders":          {module: "majorHoldersBreakdown"},
	"institutional_holders":  {module: "institutionOwnership", listKey: "ownershipList"},
	"mutualfund_holders":     {module: "fundOwnership", listKey: "ownershipList"},
	"insider_transactions":   {module: "insiderTransactions", listKey: "transactions"},
	"insider_purchases":      {module: "netSharePurchaseActivity"},
	"insider_roster_holders": {module: "insiderHolders", listKey: "holders"},
}

type HolderInfo struct {
	Symbol     string `json:"symbol"`
	HolderType string `json:"holder_type"`
	Data       any    `json:"data"`
}

func (s *Service) StockInfo(ctx context.Context, in *market.SymbolInput) (*StockInfo, error) {
	ticker := s.ticker(in.Symbol)
	summary, err := s.provider.QuoteSummary(ctx, ticker, infoModules...)
	if err != nil {
		return nil, err
	}

	info := make(map[string]any)
	for _, module := range infoModules {
		for key, value := range summary[module] {
			if key == "maxAge" {
				continue
			}
			if _, exists := info[key]; !exists {
				info[key] = value
			}
		}
	}
	if len(info) <= 1 {
		return nil, market.SymbolNotFound(in.Symbol)
	}
	return &StockInfo{Symbol: in.Symbol, Info: info}, nil
}

func (s *Service) IncomeStatement(ctx context.Context, in *market.StatementInput) (*IncomeStatement, error) {
	data, err := s.statement(ctx, in, incomeStatementSource)
	if err != nil {
		return nil, err
	}
	return &IncomeStatement{Symbol: in.Symbol, Frequency: in.Freq, IncomeStatement: data}, nil
}

func (s *Service) BalanceSheet(ctx context.Context, in *market.StatementInput) (*BalanceSheet, error) {
	data, err := s.statement(ctx, in, balanceSheetSource)
	if err != nil {
		return nil, err
	}
	return &BalanceSheet{Symbol: in.Symbol, Frequency: in.Freq, BalanceSheet: data}, nil
}

func (s *Service) Cashflow(ctx context.Context, in *market.StatementInput) (*Cashflow, error) {
	data, err := s.statement(ctx, in, cashflowSource)
	if err != nil {
		return nil, err
	}
	return &Cashflow{Symbol: in.Symbol, Frequency: in.Freq, Cashflow: data}, nil
}

func (s *Service) statement(ctx context.Context, in *market.StatementInput, src statementSource) (Statement, error) {
	module := src.yearly
	if in.Freq == "quarterly" {
		module = src.quarter
	}

	summary, err := s.provider.QuoteSummary(ctx, s.ticker(in.Symbol), module)
	if err != nil {
		return nil, err
	}

	out := make(Statement)
	for _, record := range records(summary[module], src.listKey) {
		date, ok := epochDate(record["endDate"])
		if !ok {
			continue
		}
		items := cleanRecord(record)
		delete(items, "endDate")
		if len(items) > 0 {
			out[date] = items
		}
	}
	if len(out) == 0 {
		return nil, market.DataNotAvailable(in.Freq+" "+src.dataType, in.Symbol)
	}
	return out, nil
}

func (s *Service) HolderInfo(ctx context.Context, in *market.HolderInput) (*HolderInfo, error) {
	src, ok := holderSources[in.HolderType]
	if !ok {
		return nil, market.InvalidParameter("holder_type", in.HolderType, market.HolderTypes...)
	}

	summary, err := s.provider.QuoteSummary(ctx, s.ticker(in.Symbol), src.module)
	if err != nil {
		return nil, err
	}

	notAvailable := market.DataNotAvailable(in.HolderType+" data", in.Symbol)
	module := summary[src.module]
	if src.listKey == "" {
		data := cleanRecord(module)
		if len(data) == 0 {
			return nil, notAvailable
		}
		return &HolderInfo{Symbol: in.Symbol, HolderType: in.HolderType, Data: data}, nil
	}

	list := records(module, src.listKey)
	if len(list) == 0 {
		return nil, notAvailable
	}
	data := make([]map[string]any, 0, len(list))
	for _, record := range list {
		data = append(data, cleanRecord(record))
	}
	return &HolderInfo{Symbol: in.Symbol, HolderType: in.HolderType, Data: data}, nil
}

// records extracts the list stored under key in a flattened module.
func records(module map[string]any, key string) []map[string]any {
	raw, ok := module[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if record, ok := item.(map[string]any); ok {
			out = append(out, record)
		}
	}
	return out
}

// cleanRecord drops bookkeeping fields and renders epoch dates.
func cleanRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		if key == "maxAge" || value == nil {
			continue
		}
		if dateFields[key] {
			if date, ok := epochDate(value); ok {
				out[key] = date
				continue
			}
		}
		out[key] = value
	}
	return out
}
