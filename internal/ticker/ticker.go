// Package ticker finds the stock symbols a newsletter mentions so pages can
// be tagged with the companies they cover.
package ticker

import (
	"regexp"
	"sort"
	"strings"
)

// MaxMentions caps how many symbols a single message can be tagged with.
const MaxMentions = 10

var known = map[string]struct{}{}

func init() {
	for _, t := range []string{
		"AAPL", "MSFT", "GOOGL", "GOOG", "AMZN", "META", "TSLA", "NFLX", "NVDA", "AMD", "INTC",
		"TSM", "ASML", "AVGO", "QCOM", "AMAT", "LRCX", "KLAC", "MRVL", "ADI", "NXPI",
		"TXN", "MCHP", "TER", "SNPS", "CDNS", "ARM", "SWKS", "MPWR",
		"COHR", "LITE", "CIEN", "ANET", "CSCO", "KEYS", "FFIV", "JNPR",
		"SMCI", "DELL", "HPE", "HPQ", "IBM", "NTAP", "WDC", "STX",
		"CRM", "ORCL", "NOW", "SNOW", "PLTR", "PATH", "WDAY", "ADBE", "INTU", "PANW", "CRWD",
		"FTNT", "NET", "MDB", "DDOG", "TEAM", "VEEV", "AKAM", "EPAM", "CTSH",
		"ACN", "GDDY", "VRSN", "CSGP", "MSCI", "FICO", "PAYC", "PAYX", "ADP",
		"FDS", "JKHY", "FIS", "FISV", "GPN", "CPAY",
		"APP", "UBER", "ABNB", "BKNG", "EXPE", "DASH", "EBAY", "ETSY", "PYPL", "COIN",
		"HOOD", "TTD", "ROKU", "SPOT", "PINS", "SNAP", "MTCH", "TTWO", "RBLX",
		"BABA", "PDD", "BIDU", "NIO", "XPEV", "BILI", "TME", "NTES",
		"RIVN", "LCID", "APTV",
		"LLY", "UNH", "JNJ", "MRK", "ABBV", "PFE", "BMY", "AMGN", "GILD", "VRTX", "REGN",
		"JPM", "BAC", "WFC", "BLK", "KKR", "APO", "ARES", "SCHW",
		"GEV", "HON", "CAT", "RTX", "LMT", "NOC", "LHX", "HII",
		"XOM", "CVX", "COP", "OXY", "EOG", "DVN", "FANG", "MPC", "VLO", "PSX", "SLB",
		"NEE", "DUK", "AEP", "EXC", "SRE", "PCG", "XEL", "WEC", "VST", "CEG",
		"LIN", "APD", "SHW", "ECL", "DOW", "PPG", "NUE", "STLD", "VMC", "MLM",
		"KO", "PEP", "COST", "WMT", "TGT", "LOW", "DLTR",
		"AMT", "CCI", "SBAC", "PLD", "EQIX", "DLR", "PSA", "EXR", "SPG", "VICI",
		"DIS", "CMCSA", "CHTR", "WBD", "PARA", "FOX", "FOXA", "NWS", "NWSA", "LYV", "TKO",
	} {
		known[t] = struct{}{}
	}
}

// Acronyms that look like tickers but never are in newsletter prose.
var excluded = map[string]struct{}{}

func init() {
	for _, t := range []string{
		"CEO", "CFO", "COO", "CTO", "IPO", "GDP", "CPI", "PPI",
		"ETF", "USD", "EUR", "JPY", "GBP", "CNY", "API", "AI",
		"YTD", "QOQ", "YOY", "MOM", "BPS", "EPS", "ROE", "ROA",
		"SEC", "FED", "ECB", "BOJ", "PMI", "ISM", "FOMC",
		"BUY", "SELL", "HOLD", "NEW", "THE", "AND", "FOR",
		"GPU", "CPU", "TPU", "RAM", "SSD", "LLM", "NLP",
		"OIL", "GAS", "GOLD", "COAL", "CES", "USA", "UK", "EU",
	} {
		excluded[t] = struct{}{}
	}
}

var (
	dollarPattern   = regexp.MustCompile(`\$([A-Z]{2,6})\b`)
	researchPattern = regexp.MustCompile(`Research\|([A-Z]{2,6}):`)
)

// CompanyTicker resolves a company name to its symbol, or "" if unknown.
func CompanyTicker(name string) string {
	return companies[strings.ToLower(strings.TrimSpace(name))]
}

// Extract returns the sorted symbols mentioned in a message's subject and
// body. $SYMBOL mentions must appear in the known universe, optionally
// widened by extra symbols; the "Research|SYMBOL:" subject form is trusted
// as-is.
func Extract(subject, body string, extra []string) []string {
	extras := make(map[string]struct{}, len(extra))
	for _, symbol := range extra {
		extras[strings.ToUpper(strings.TrimSpace(symbol))] = struct{}{}
	}

	found := map[string]struct{}{}

	for _, m := range dollarPattern.FindAllStringSubmatch(subject+" "+body, -1) {
		symbol := m[1]
		if _, skip := excluded[symbol]; skip {
			continue
		}
		if _, ok := known[symbol]; ok {
			found[symbol] = struct{}{}
		} else if _, ok := extras[symbol]; ok {
			found[symbol] = struct{}{}
		}
	}

	if m := researchPattern.FindStringSubmatch(subject); m != nil {
		if _, skip := excluded[m[1]]; !skip {
			found[m[1]] = struct{}{}
		}
	}

	out := make([]string, 0, len(found))
	for symbol := range found {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

var companies = map[string]string{
	"apple": "AAPL", "microsoft": "MSFT", "google": "GOOGL", "alphabet": "GOOGL",
	"amazon": "AMZN", "meta": "META", "facebook": "META", "nvidia": "NVDA",
	"tesla": "TSLA", "netflix": "NFLX", "adobe": "ADBE", "salesforce": "CRM",
	"oracle": "ORCL", "intel": "INTC", "amd": "AMD", "advanced micro devices": "AMD",
	"qualcomm": "QCOM", "broadcom": "AVGO", "cisco": "CSCO", "ibm": "IBM",
	"asml": "ASML", "tsmc": "TSM", "taiwan semiconductor": "TSM",
	"micron": "MU", "applied materials": "AMAT", "lam research": "LRCX",
	"marvell": "MRVL", "arm": "ARM", "synopsys": "SNPS", "cadence": "CDNS",
	"jpmorgan": "JPM", "jp morgan": "JPM", "goldman": "GS", "goldman sachs": "GS",
	"morgan stanley": "MS", "bank of america": "BAC", "citigroup": "C",
	"wells fargo": "WFC", "blackrock": "BLK", "visa": "V", "mastercard": "MA",
	"disney": "DIS", "warner": "WBD", "comcast": "CMCSA", "spotify": "SPOT",
	"walmart": "WMT", "costco": "COST", "target": "TGT", "home depot": "HD",
	"starbucks": "SBUX", "mcdonald": "MCD", "nike": "NKE", "lululemon": "LULU",
	"alibaba": "BABA", "tencent": "TCEHY", "baidu": "BIDU", "pinduoduo": "PDD",
	"palantir": "PLTR", "snowflake": "SNOW", "datadog": "DDOG", "crowdstrike": "CRWD",
	"airbnb": "ABNB", "uber": "UBER", "doordash": "DASH", "applovin": "APP",
}
