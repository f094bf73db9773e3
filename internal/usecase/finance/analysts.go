package finance

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"yfmcp/internal/domain/market"
)

type Recommendations struct {
	Symbol             string           `json:"symbol"`
	RecommendationType string           `json:"recommendation_type"`
	MonthsBack         int              `json:"months_back"`
	Data               []map[string]any `json:"data"`
}

type EarningsDate struct {
	Date            string   `json:"date"`
	EPSEstimate     *float64 `json:"eps_estimate"`
	ReportedEPS     *float64 `json:"reported_eps"`
	SurprisePercent *float64 `json:"surprise_percent"`
}

type EarningDates struct {
	Symbol        string         `json:"symbol"`
	Limit         int            `json:"limit"`
	EarningsDates []EarningsDate `json:"earnings_dates"`
}

type PriceTargets struct {
	CurrentPrice            any `json:"current_price"`
	TargetHighPrice         any `json:"target_high_price"`
	TargetLowPrice          any `json:"target_low_price"`
	TargetMeanPrice         any `json:"target_mean_price"`
	TargetMedianPrice       any `json:"target_median_price"`
	RecommendationMean      any `json:"recommendation_mean"`
	RecommendationKey       any `json:"recommendation_key"`
	NumberOfAnalystOpinions any `json:"number_of_analyst_opinions"`
}

type AnalystPriceTargets struct {
	Symbol       string       `json:"symbol"`
	PriceTargets PriceTargets `json:"price_targets"`
}

func (s *Service) Recommendations(ctx context.Context, in *market.RecommendationsInput) (*Recommendations, error) {
	var (
		module  = "recommendationTrend"
		listKey = "trend"
	)
	if in.RecommendationType == "upgrades_downgrades" {
		module = "upgradeDowngradeHistory"
		listKey = "history"
	}

	summary, err := s.provider.QuoteSummary(ctx, s.ticker(in.Symbol), module)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().AddDate(0, -in.MonthsBack, 0)
	data := make([]map[string]any, 0)
	for _, record := range records(summary[module], listKey) {
		if in.RecommendationType == "upgrades_downgrades" {
			graded, ok := record["epochGradeDate"].(float64)
			if !ok || time.Unix(int64(graded), 0).Before(cutoff) {
				continue
			}
		} else if months, ok := trendOffset(record["period"]); ok && months > in.MonthsBack {
			continue
		}
		data = append(data, cleanRecord(record))
	}
	if len(data) == 0 {
		return nil, market.DataNotAvailable(in.RecommendationType+" data", in.Symbol)
	}

	return &Recommendations{
		Symbol:             in.Symbol,
		RecommendationType: in.RecommendationType,
		MonthsBack:         in.MonthsBack,
		Data:               data,
	}, nil
}

// trendOffset parses recommendation trend periods such as "0m" or "-3m".
func trendOffset(v any) (int, bool) {
	period, ok := v.(string)
	if !ok || !strings.HasSuffix(period, "m") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(period, "m"))
	if err != nil {
		return 0, false
	}
	if n < 0 {
		n = -n
	}
	return n, true
}

func (s *Service) EarningDates(ctx context.Context, in *market.EarningDatesInput) (*EarningDates, error) {
	summary, err := s.provider.QuoteSummary(ctx, s.ticker(in.Symbol), "calendarEvents", "earningsHistory")
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*EarningsDate)
	entry := func(date string) *EarningsDate {
		if e, ok := byDate[date]; ok {
			return e
		}
		e := &EarningsDate{Date: date}
		byDate[date] = e
		return e
	}

	if earnings, ok := summary["calendarEvents"]["earnings"].(map[string]any); ok {
		estimate := number(earnings["earningsAverage"])
		if dates, ok := earnings["earningsDate"].([]any); ok {
			for _, raw := range dates {
				if date, ok := epochDate(raw); ok {
					entry(date).EPSEstimate = estimate
				}
			}
		}
	}
	for _, record := range records(summary["earningsHistory"], "history") {
		date, ok := epochDate(record["quarter"])
		if !ok {
			continue
		}
		e := entry(date)
		e.EPSEstimate = number(record["epsEstimate"])
		e.ReportedEPS = number(record["epsActual"])
		if surprise := number(record["surprisePercent"]); surprise != nil {
			pct := *surprise * 100
			e.SurprisePercent = &pct
		}
	}
	if len(byDate) == 0 {
		return nil, market.DataNotAvailable("earnings dates", in.Symbol)
	}

	dates := make([]EarningsDate, 0, len(byDate))
	for _, e := range byDate {
		dates = append(dates, *e)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Date > dates[j].Date })
	if len(dates) > in.Limit {
		dates = dates[:in.Limit]
	}
	return &EarningDates{Symbol: in.Symbol, Limit: in.Limit, EarningsDates: dates}, nil
}

func (s *Service) AnalystPriceTargets(ctx context.Context, in *market.SymbolInput) (*AnalystPriceTargets, error) {
	summary, err := s.provider.QuoteSummary(ctx, s.ticker(in.Symbol), "financialData", "price")
	if err != nil {
		return nil, err
	}

	fd := summary["financialData"]
	current := fd["currentPrice"]
	if current == nil {
		current = summary["price"]["regularMarketPrice"]
	}
	targets := PriceTargets{
		CurrentPrice:            current,
		TargetHighPrice:         fd["targetHighPrice"],
		TargetLowPrice:          fd["targetLowPrice"],
		TargetMeanPrice:         fd["targetMeanPrice"],
		TargetMedianPrice:       fd["targetMedianPrice"],
		RecommendationMean:      fd["recommendationMean"],
		RecommendationKey:       fd["recommendationKey"],
		NumberOfAnalystOpinions: fd["numberOfAnalystOpinions"],
	}
	if targets.TargetHighPrice == nil && targets.TargetLowPrice == nil && targets.TargetMeanPrice == nil &&
		targets.TargetMedianPrice == nil && targets.RecommendationMean == nil && targets.RecommendationKey == nil &&
		targets.NumberOfAnalystOpinions == nil {
		return nil, market.DataNotAvailable("analyst price targets", in.Symbol)
	}
	return &AnalystPriceTargets{Symbol: in.Symbol, PriceTargets: targets}, nil
}

func number(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}
