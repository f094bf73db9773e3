package market

import "sort"

const (
	OpCurrentStockPrice     = "get_current_stock_price"
	OpStockPriceByDate      = "get_stock_price_by_date"
	OpStockPriceDateRange   = "get_stock_price_date_range"
	OpHistoricalStockPrices = "get_historical_stock_prices"
	OpDividends             = "get_dividends"
	OpStockActions          = "get_stock_actions"
	OpStockInfo             = "get_stock_info"
	OpIncomeStatement       = "get_income_statement"
	OpBalanceSheet          = "get_balance_sheet"
	OpCashflow              = "get_cashflow"
	OpHolderInfo            = "get_holder_info"
	OpOptionExpirationDates = "get_option_expiration_dates"
	OpOptionChain           = "get_option_chain"
	OpNews                  = "get_news"
	OpRecommendations       = "get_recommendations"
	OpEarningDates          = "get_earning_dates"
	OpStockSplits           = "get_stock_splits"
	OpAnalystPriceTargets   = "get_analyst_price_targets"
)

// Cache classes. Each names a bucket in the TTL taxonomy.
const (
	ClassCurrentPrice          = "current_price"
	ClassHistoricalData        = "historical_data"
	ClassStockInfo             = "stock_info"
	ClassDividends             = "dividends"
	ClassStockActions          = "stock_actions"
	ClassIncomeStatement       = "income_statement"
	ClassBalanceSheet          = "balance_sheet"
	ClassCashflow              = "cashflow"
	ClassFinancials            = "financials"
	ClassHolderInfo            = "holder_info"
	ClassHolders               = "holders"
	ClassOptionExpirationDates = "option_expiration_dates"
	ClassOptionChain           = "option_chain"
	ClassOptions               = "options"
	ClassNews                  = "news"
	ClassRecommendations       = "recommendations"
	ClassEarningDates          = "earning_dates"
	ClassStockSplits           = "stock_splits"
	ClassAnalystPriceTargets   = "analyst_price_targets"
	ClassDefault               = "default"
)

// Operation is one entry of the static tool catalog.
type Operation struct {
	Name        string
	Description string
	CacheClass  string
	Cacheable   bool
}

var catalog = []Operation{
	{OpCurrentStockPrice, "Get the current stock price for a given symbol.", ClassCurrentPrice, false},
	{OpStockPriceByDate, "Get the stock price for a specific date.", ClassHistoricalData, true},
	{OpStockPriceDateRange, "Get stock prices for a date range.", ClassHistoricalData, true},
	{OpHistoricalStockPrices, "Get historical stock prices for a period and interval.", ClassHistoricalData, true},
	{OpDividends, "Get the dividend history for a stock.", ClassDividends, true},
	{OpStockActions, "Get stock actions (dividends and splits) for a stock.", ClassStockActions, true},
	{OpStockInfo, "Get comprehensive company information and key statistics.", ClassStockInfo, true},
	{OpIncomeStatement, "Get the income statement (yearly or quarterly).", ClassIncomeStatement, true},
	{OpBalanceSheet, "Get the balance sheet (yearly or quarterly).", ClassBalanceSheet, true},
	{OpCashflow, "Get the cash flow statement (yearly or quarterly).", ClassCashflow, true},
	{OpHolderInfo, "Get holder information (major, institutional, mutual fund, insider).", ClassHolderInfo, true},
	{OpOptionExpirationDates, "Get the available option expiration dates.", ClassOptionExpirationDates, true},
	{OpOptionChain, "Get the option chain for an expiration date.", ClassOptionChain, false},
	{OpNews, "Get the latest news articles for a stock.", ClassNews, true},
	{OpRecommendations, "Get analyst recommendations or upgrades and downgrades.", ClassRecommendations, true},
	{OpEarningDates, "Get upcoming and historical earnings dates.", ClassEarningDates, true},
	{OpStockSplits, "Get the stock split history.", ClassStockSplits, true},
	{OpAnalystPriceTargets, "Get analyst price targets.", ClassAnalystPriceTargets, true},
}

var catalogByName = func() map[string]Operation {
	out := make(map[string]Operation, len(catalog))
	for _, op := range catalog {
		out[op.Name] = op
	}
	return out
}()

// Catalog returns a copy of every known operation sorted by name.
func Catalog() []Operation {
	out := make([]Operation, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func Lookup(name string) (Operation, bool) {
	op, ok := catalogByName[name]
	return op, ok
}

// DefaultTTLSeconds is the shipped TTL taxonomy. Configuration may override
// any entry.
func DefaultTTLSeconds() map[string]int {
	return map[string]int{
		ClassCurrentPrice:          60,
		ClassHistoricalData:        3600,
		ClassStockInfo:             86400,
		ClassDividends:             86400,
		ClassStockActions:          86400,
		ClassIncomeStatement:       86400,
		ClassBalanceSheet:          86400,
		ClassCashflow:              86400,
		ClassFinancials:            86400,
		ClassHolderInfo:            3600,
		ClassHolders:               3600,
		ClassOptionExpirationDates: 3600,
		ClassOptionChain:           300,
		ClassOptions:               300,
		ClassNews:                  1800,
		ClassRecommendations:       86400,
		ClassEarningDates:          86400,
		ClassStockSplits:           86400,
		ClassAnalystPriceTargets:   3600,
		ClassDefault:               3600,
	}
}
