// Package intent routes a chat utterance to an answer mode using an
// ordered table of keyword rules.
package intent

import "strings"

// Intent is the answer mode chosen for an utterance.
type Intent string

const (
	// Educational answers from the language model alone.
	Educational Intent = "educational"
	// LatestQuote narrates the most recent index close.
	LatestQuote Intent = "latest"
	// WeeklySeries narrates the last seven trading days.
	WeeklySeries Intent = "weekly"
)

func (i Intent) String() string { return string(i) }

// NeedsMarketData reports whether the mode fetches index data.
func (i Intent) NeedsMarketData() bool {
	return i == LatestQuote || i == WeeklySeries
}

// Rule is one row of the routing table: any marker found anywhere in the
// lower-cased utterance yields Result.
type Rule struct {
	Name    string
	Markers []string
	Result  Intent
}

// Rules is evaluated top-down and the first matching rule wins. The
// exclusion row keeps definitional questions that mention the index
// ("apa itu IHSG?") from triggering a data fetch.
var Rules = []Rule{
	{
		Name: "exclusion",
		Markers: []string{
			"apa itu", "jelaskan", "definisi", "maksudnya", "pengertian",
			"bagaimana cara", "mengapa", "kenapa", "perbedaan",
		},
		Result: Educational,
	},
	{
		Name: "weekly",
		Markers: []string{
			"seminggu", "minggu ini", "7 hari", "mingguan", "weekly",
			"seminggu terakhir", "data seminggu", "tren minggu",
			"pergerakan seminggu", "grafik minggu", "chart minggu",
		},
		Result: WeeklySeries,
	},
	{
		Name: "latest",
		Markers: []string{
			"ihsg", "indeks harga saham gabungan", "jkse", "bursa hari ini",
			"posisi ihsg", "berapa ihsg", "harga ihsg", "idx", "indeks komposit",
			"bursa saham indonesia", "saham hari ini", "pasar modal hari ini",
			"update ihsg", "pergerakan ihsg", "closing ihsg", "pembukaan ihsg",
			"berita ihsg",
		},
		Result: LatestQuote,
	},
}

// Decision explains a classification.
type Decision struct {
	Intent Intent `json:"intent"`
	Rule   string `json:"rule"`             // "default" when nothing matched
	Marker string `json:"marker,omitempty"` // the marker that matched
}

// Classify maps an utterance to an intent.
func Classify(utterance string) Intent {
	return Explain(utterance).Intent
}

// Explain classifies an utterance and reports which rule and marker decided it.
// Matching is unanchored substring search: "idx" also matches inside longer
// words, and negations ("tidak perlu ihsg") are not recognized.
func Explain(utterance string) Decision {
	text := strings.ToLower(utterance)
	for _, rule := range Rules {
		for _, m := range rule.Markers {
			if strings.Contains(text, m) {
				return Decision{Intent: rule.Result, Rule: rule.Name, Marker: m}
			}
		}
	}
	return Decision{Intent: Educational, Rule: "default"}
}
