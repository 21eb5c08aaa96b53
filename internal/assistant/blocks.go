package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/indeksai/indeksai/internal/analysis/sentiment"
	"github.com/indeksai/indeksai/internal/analysis/trend"
	"github.com/indeksai/indeksai/pkg/models"
	"github.com/indeksai/indeksai/pkg/utils"
)

// LatestFooter is the raw-data block appended under a narrated quote so the
// numbers survive whatever the model wrote.
func LatestFooter(q *models.Quote, headlines []models.NewsArticle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n\n---\n**📊 Data Mentah dari Yahoo Finance (%s):**\n", q.Symbol)
	fmt.Fprintf(&sb, "- 📅 Tanggal: %s, %s\n", q.DayName, q.DateLabel)
	fmt.Fprintf(&sb, "- 💰 Penutupan: **%.2f** poin\n", q.Close)
	fmt.Fprintf(&sb, "- 📈 Perubahan: **%+.2f** poin (**%+.2f%%**)\n", q.ChangePoints, q.ChangePercent)
	fmt.Fprintf(&sb, "- 🔄 Status: **%s**\n", q.Direction().Label())
	fmt.Fprintf(&sb, "- ⏰ Data diambil: %s", q.MarketStatus())

	if len(headlines) > 0 {
		sb.WriteString("\n\n**📰 Berita terkait:**")
		for _, h := range headlines {
			if h.URL != "" {
				fmt.Fprintf(&sb, "\n- [%s](%s) (%s)", h.Title, h.URL, h.Source)
			} else {
				fmt.Fprintf(&sb, "\n- %s (%s)", h.Title, h.Source)
			}
		}
		mood := sentiment.Summarize(headlines, time.Now())
		fmt.Fprintf(&sb, "\n- 🧭 Sentimen berita: **%s** (skor %+.2f)", mood.Label, mood.Score)
	}
	return sb.String()
}

// LatestFallback is returned instead of a narration when the model fails.
func LatestFallback(q *models.Quote) string {
	return fmt.Sprintf("⚠️ Data IHSG: %.2f (%+.2f%%). Sistem AI sedang sibuk, data mentah ditampilkan.",
		q.Close, q.ChangePercent)
}

// WeeklyStatsBlock renders the deterministic period statistics.
func WeeklyStatsBlock(series *models.Series, st trend.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n📊 **Ringkasan Data IHSG %d Hari Trading Terakhir**\n\n", series.Len())
	sb.WriteString("**Performa Mingguan:**\n")
	fmt.Fprintf(&sb, "- Penutupan Awal: %s (%s)\n", utils.FormatPoints(st.First.Close), st.First.DateLabel)
	fmt.Fprintf(&sb, "- Penutupan Akhir: %s (%s)\n", utils.FormatPoints(st.Last.Close), st.Last.DateLabel)
	fmt.Fprintf(&sb, "- Perubahan Minggu: %s poin (%s)\n", utils.FormatSignedPoints(st.PeriodChange), utils.FormatPct(st.PeriodChangePercent))
	fmt.Fprintf(&sb, "- Status: %s\n\n", st.Trend.Display())
	sb.WriteString("**Statistik:**\n")
	fmt.Fprintf(&sb, "- Tertinggi: %s\n", utils.FormatPoints(st.High))
	fmt.Fprintf(&sb, "- Terendah: %s\n", utils.FormatPoints(st.Low))
	fmt.Fprintf(&sb, "- Rata-rata: %s\n", utils.FormatPoints(st.Average))
	fmt.Fprintf(&sb, "- Range: %s poin\n", utils.FormatPoints(st.Range))
	fmt.Fprintf(&sb, "- Hari naik/turun: %d/%d\n\n", st.UpDays, st.DownDays)
	sb.WriteString("---\n")
	return sb.String()
}

// TableHeading introduces the data table at the end of a weekly answer.
const TableHeading = "**📋 Tabel Data Lengkap:**"

// TableColumns are the headers of the weekly data table.
var TableColumns = []string{"Tanggal", "Hari", "Penutupan", "Perubahan", "Volume"}

// TableRows formats each bar of series as display strings in TableColumns order.
func TableRows(series *models.Series) [][]string {
	rows := make([][]string, 0, series.Len())
	for _, b := range series.Bars {
		rows = append(rows, []string{
			b.DateLabel,
			b.DayName,
			utils.FormatPoints(b.Close),
			utils.FormatChange(b.Change, b.ChangePct),
			utils.FormatVolume(b.Volume),
		})
	}
	return rows
}

// MarkdownTable renders series as a GitHub-flavoured markdown table.
func MarkdownTable(series *models.Series) string {
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(TableColumns, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat("---|", len(TableColumns)) + "\n")
	for _, row := range TableRows(series) {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return sb.String()
}
