package market

import (
	"sort"
	"strings"
)

var marketSuffixes = map[string]string{
	"US":     "",
	"BR":     ".SA",
	"UK":     ".L",
	"DE":     ".DE",
	"FR":     ".PA",
	"JP":     ".T",
	"IN_NSE": ".NS",
	"IN_BSE": ".BO",
	"HK":     ".HK",
	"AU":     ".AX",
	"CA":     ".TO",
	"CN":     ".SS",
	"ES":     ".MC",
	"IT":     ".MI",
	"NL":     ".AS",
	"CH":     ".SW",
	"SE":     ".ST",
	"KR":     ".KS",
	"TW":     ".TW",
	"SG":     ".SI",
	"MX":     ".MX",
	"AR":     ".BA",
}

// NormalizeTicker upper-cases symbol and appends the exchange suffix of
// market. Symbols that already carry a suffix are returned unchanged.
func NormalizeTicker(symbol string, market string) string {
	ticker := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(ticker, ".") {
		return ticker
	}
	return ticker + marketSuffixes[strings.ToUpper(strings.TrimSpace(market))]
}

func IsSupportedMarket(market string) bool {
	_, ok := marketSuffixes[strings.ToUpper(strings.TrimSpace(market))]
	return ok
}

func SupportedMarkets() []string {
	out := make([]string, 0, len(marketSuffixes))
	for code := range marketSuffixes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
