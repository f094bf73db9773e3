package market

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	Periods             = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}
	Intervals           = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}
	Frequencies         = []string{"yearly", "quarterly"}
	HolderTypes         = []string{"major_holders", "institutional_holders", "mutualfund_holders", "insider_transactions", "insider_purchases", "insider_roster_holders"}
	OptionTypes         = []string{"calls", "puts", "both"}
	RecommendationTypes = []string{"recommendations", "upgrades_downgrades"}
)

// Input is implemented by every typed tool input.
type Input interface {
	ApplyDefaults()
	Validate() error
	Ticker() string
}

type SymbolInput struct {
	Symbol string `json:"symbol" jsonschema_description:"Stock ticker symbol (e.g. AAPL or PETR4)."`
}

func (in *SymbolInput) ApplyDefaults() {}

func (in *SymbolInput) Validate() error { return validateSymbol(in.Symbol) }

func (in *SymbolInput) Ticker() string { return in.Symbol }

type PriceByDateInput struct {
	Symbol string `json:"symbol" jsonschema_description:"Stock ticker symbol."`
	Date   string `json:"date" jsonschema_description:"Date in YYYY-MM-DD format."`
}

func (in *PriceByDateInput) ApplyDefaults() {}

func (in *PriceByDateInput) Validate() error {
	if err := validateSymbol(in.Symbol); err != nil {
		return err
	}
	_, err := ParseDate("date", in.Date)
	return err
}

func (in *PriceByDateInput) Ticker() string { return in.Symbol }

type DateRangeInput struct {
	Symbol    string `json:"symbol" jsonschema_description:"Stock ticker symbol."`
	StartDate string `json:"start_date" jsonschema_description:"Start date in YYYY-MM-DD format."`
	EndDate   string `json:"end_date" jsonschema_description:"End date in YYYY-MM-DD format."`
}

func (in *DateRangeInput) ApplyDefaults() {}

func (in *DateRangeInput) Validate() error {
	if err := validateSymbol(in.Symbol); err != nil {
		return err
	}
	start, err := ParseDate("start_date", in.StartDate)
	if err != nil {
		return err
	}
	end, err := ParseDate("end_date", in.EndDate)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return InvalidParameter("end_date", in.EndDate, "a date on or after start_date")
	}
	return nil
}

func (in *DateRangeInput) Ticker() string { return in.Symbol }

type HistoricalInput struct {
	Symbol   string `json:"symbol" jsonschema_description:"Stock ticker symbol."`
	Period   string `json:"period,omitempty" jsonschema:"enum=1d,enum=5d,enum=1mo,enum=3mo,enum=6mo,enum=1y,enum=2y,enum=5y,enum=10y,enum=ytd,enum=max,default=1mo" jsonschema_description:"Time period (e.g. 1mo or 1y or max)."`
	Interval string `json:"interval,omitempty" jsonschema:"enum=1m,enum=2m,enum=5m,enum=15m,enum=30m,enum=60m,enum=90m,enum=1h,enum=1d,enum=5d,enum=1wk,enum=1mo,enum=3mo,default=1d" jsonschema_description:"Data interval (e.g. 1d or 1wk or 1mo)."`
}

func (in *HistoricalInput) ApplyDefaults() {
	if in.Period == "" {
		in.Period = "1mo"
	}
	if in.Interval == "" {
		in.Interval = "1d"
	}
}

func (in *HistoricalInput) Validate() error {
	if err := validateSymbol(in.Symbol); err != nil {
		return err
	}
	if err := validateEnum("period", in.Period, Periods); err != nil {
		return err
	}
	return validateEnum("interval", in.Interval, Intervals)
}

func (in *HistoricalInput) Ticker() string { return in.Symbol }

type StatementInput struct {
	Symbol string `json:"symbol" jsonschema_description:"Stock ticker symbol."`
	Freq   string `json:"freq,omitempty" jsonschema:"enum=yearly,enum=quarterly,default=yearly" jsonschema_description:"Frequency: yearly or quarterly."`
}

func (in *StatementInput) ApplyDefaults() {
	if in.Freq == "" {
		in.Freq = "yearly"
	}
}

func (in *StatementInput) Validate() error {
	if err := validateSymbol(in.Symbol); err != nil {
		return err
	}
	return validateEnum("freq", in.Freq, Frequencies)
}

func (in *StatementInput) Ticker() string { return in.Symbol }

type HolderInput struct {
	Symbol     string `json:"symbol" jsonschema_description:"Stock ticker symbol."`
	HolderType string `json:"holder_type" jsonschema:"enum=major_holders,enum=institutional_holders,enum=mutualfund_holders,enum=insider_transactions,enum=insider_purchases,enum=insider_roster_holders" jsonschema_description:"Type of holder information to retrieve."`
}

func (in *HolderInput) ApplyDefaults() {}

func (in *HolderInput) Validate() error {
	if err := validateSymbol(in.Symbol); err != nil {
		return err
	}
	return validateEnum("holder_type", in.HolderType, HolderTypes)
}

func (in *HolderInput) Ticker() string { return in.Symbol }

type OptionChainInput struct {
	Symbol         string `json:"symbol" jsonschema_description:"Stock ticker symbol."`
	ExpirationDate string `json:"expiration_date" jsonschema_description:"Option expiration date (YYYY-MM-DD format)."`
	OptionType     string `json:"option_type,omitempty" jsonschema:"enum=calls,enum=puts,enum=both,default=both" jsonschema_description:"Type of options: calls or puts or both."`
}

func (in *OptionChainInput) ApplyDefaults() {
	if in.OptionType == "" {
		in.OptionType = "both"
	}
}

func (in *OptionChainInput) Validate() error {
	if err := validateSymbol(in.Symbol); err != nil {
		return err
	}
	if _, err := ParseDate("expiration_date", in.ExpirationDate); err != nil {
		return err
	}
	return validateEnum("option_type", in.OptionType, OptionTypes)
}

func (in *OptionChainInput) Ticker() string { return in.Symbol }

type RecommendationsInput struct {
	Symbol             string `json:"symbol" jsonschema_description:"Stock ticker symbol."`
	RecommendationType string `json:"recommendation_type,omitempty" jsonschema:"enum=recommendations,enum=upgrades_downgrades,default=recommendations" jsonschema_description:"Type of recommendations: recommendations or upgrades_downgrades."`
	MonthsBack         int    `json:"months_back,omitempty" jsonschema:"minimum=1,default=12" jsonschema_description:"Number of months of historical recommendations to retrieve."`
}

func (in *RecommendationsInput) ApplyDefaults() {
	if in.RecommendationType == "" {
		in.RecommendationType = "recommendations"
	}
	if in.MonthsBack == 0 {
		in.MonthsBack = 12
	}
}

func (in *RecommendationsInput) Validate() error {
	if err := validateSymbol(in.Symbol); err != nil {
		return err
	}
	if err := validateEnum("recommendation_type", in.RecommendationType, RecommendationTypes); err != nil {
		return err
	}
	if in.MonthsBack < 1 {
		return InvalidParameter("months_back", strconv.Itoa(in.MonthsBack), "a positive integer")
	}
	return nil
}

func (in *RecommendationsInput) Ticker() string { return in.Symbol }

type EarningDatesInput struct {
	Symbol string `json:"symbol" jsonschema_description:"Stock ticker symbol."`
	Limit  int    `json:"limit,omitempty" jsonschema:"minimum=1,default=12" jsonschema_description:"Maximum number of earnings dates to retrieve."`
}

func (in *EarningDatesInput) ApplyDefaults() {
	if in.Limit == 0 {
		in.Limit = 12
	}
}

func (in *EarningDatesInput) Validate() error {
	if err := validateSymbol(in.Symbol); err != nil {
		return err
	}
	if in.Limit < 1 {
		return InvalidParameter("limit", strconv.Itoa(in.Limit), "a positive integer")
	}
	return nil
}

func (in *EarningDatesInput) Ticker() string { return in.Symbol }

// ParseDate parses a YYYY-MM-DD value, reporting failures against param.
func ParseDate(param string, value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, InvalidParameter(param, value, "YYYY-MM-DD format")
	}
	return parsed, nil
}

func validateSymbol(symbol string) error {
	if strings.TrimSpace(symbol) == "" {
		return InvalidParameter("symbol", symbol, "a non-empty ticker symbol")
	}
	return nil
}

func validateEnum(param string, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return InvalidParameter(param, value, allowed...)
}
