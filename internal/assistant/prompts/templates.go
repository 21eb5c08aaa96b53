package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/phuslu/log"

	"github.com/indeksai/indeksai/internal/analysis/trend"
	"github.com/indeksai/indeksai/pkg/models"
)

// Numbers inside prompts are plain ("7171.25"); grouping is for display only.
var funcs = template.FuncMap{
	"pts":    func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"signed": func(v float64) string { return fmt.Sprintf("%+.2f", v) },
}

const latestDataText = `Data IHSG dari Yahoo Finance:
- Tanggal Data: {{.Quote.DayName}}, {{.Quote.DateLabel}}
- Status Pasar: {{if .Quote.IsCurrentDay}}Data hari ini (real-time){{else}}Data {{.Quote.DaysStale}} hari lalu (data hari ini belum tersedia){{end}}
{{- if and (not .Quote.IsCurrentDay) .Quote.StaleReason}}
- Alasan: {{.Quote.StaleReason}}
{{- end}}
- Penutupan: {{pts .Quote.Close}} poin
- Perubahan: {{signed .Quote.ChangePoints}} poin ({{signed .Quote.ChangePercent}}%)
- Status: {{.Quote.Direction.Label}}
- Penutupan sebelumnya: {{pts .Quote.PrevClose}} poin
{{- if .Headlines}}

Berita terkait:
{{- range .Headlines}}
- {{.Title}} ({{.Source}})
{{- end}}
{{- end}}

Catatan: Data ini REAL dari Yahoo Finance ticker {{.Quote.Symbol}}`

const latestPromptText = `Bertindak sebagai penyiar berita pasar profesional, sajikan data IHSG berikut dalam format yang jelas:

{{.}}

Format respons:
1. Mulai dengan menyebutkan SUMBER DATA (Yahoo Finance) dan KAPAN data tersebut
2. Jika data bukan hari ini, jelaskan MENGAPA (bursa tutup di weekend/libur)
3. Sebutkan posisi penutupan IHSG dengan jelas
4. Jelaskan pergerakan (naik/turun) dengan angka pasti
5. Gunakan bahasa yang natural dan informatif

CONTOH FORMAT YANG BAIK:
"Berdasarkan data dari Yahoo Finance, IHSG pada hari [HARI], [TANGGAL] ditutup di level [ANGKA] poin. [Jika bukan hari ini: "Data ini merupakan penutupan terakhir karena bursa saham tidak beroperasi pada hari Sabtu/Minggu/libur"]. Indeks mengalami [NAIK/TURUN] sebesar [ANGKA] poin atau [PERSEN]% dari penutupan sebelumnya di [ANGKA] poin."

PENTING: 
- Sebutkan dengan jelas bahwa data dari Yahoo Finance
- Jika data bukan hari ini, WAJIB menjelaskan alasannya
- Berikan respons LENGKAP dalam satu output`

const weeklySummaryText = `Data IHSG {{len .Series.Bars}} hari trading terakhir:
- Periode: {{.Stats.First.DateLabel}} sampai {{.Stats.Last.DateLabel}}
- Penutupan awal: {{pts .Stats.First.Close}}
- Penutupan akhir: {{pts .Stats.Last.Close}}
- Perubahan: {{signed .Stats.PeriodChange}} poin ({{signed .Stats.PeriodChangePercent}}%)
- Tertinggi: {{pts .Stats.High}}, Terendah: {{pts .Stats.Low}}
{{- with .Stats.BiggestGain}}
- Kenaikan harian terbesar: {{.DateLabel}} ({{signed .ChangePct}}%)
{{- end}}
{{- with .Stats.BiggestLoss}}
- Penurunan harian terbesar: {{.DateLabel}} ({{signed .ChangePct}}%)
{{- end}}

Detail harian:
{{- range .Series.Bars}}
- {{.DateLabel}} ({{.DayName}}): {{pts .Close}} ({{signed .Change}} / {{signed .ChangePct}}%)
{{- end}}`

const weeklyPromptText = `Sebagai analis pasar, berikan analisis singkat (2-3 paragraf) tentang pergerakan IHSG seminggu terakhir:

{{.}}

Format:
1. Gambaran umum performa mingguan (naik/turun berapa persen)
2. Highlight hari dengan pergerakan signifikan
3. Observasi pola atau tren (jika ada)

PENTING: Tetap objektif, jangan buat prediksi atau rekomendasi. Fokus pada fakta data.`

const errorPromptText = `Data IHSG dari sumber eksternal gagal diambil dengan error: {{.}}. 
        
Berikan respons yang sopan kepada pengguna bahwa data pasar real-time sedang tidak tersedia dan sarankan untuk:
1. Coba beberapa saat lagi
2. Cek langsung di website BEI atau aplikasi trading
3. Tetap bisa bertanya hal lain terkait edukasi pasar modal

PENTING: Berikan respons LENGKAP dalam satu output, jangan terpotong.`

var (
	latestData    = template.Must(template.New("latest_data").Funcs(funcs).Parse(latestDataText))
	latestPrompt  = template.Must(template.New("latest_prompt").Parse(latestPromptText))
	weeklySummary = template.Must(template.New("weekly_summary").Funcs(funcs).Parse(weeklySummaryText))
	weeklyPrompt  = template.Must(template.New("weekly_prompt").Parse(weeklyPromptText))
	errorPrompt   = template.Must(template.New("error_prompt").Parse(errorPromptText))
)

// LatestData renders the data block describing a quote and optional headlines.
func LatestData(q *models.Quote, headlines []models.NewsArticle) string {
	return render(latestData, struct {
		Quote     *models.Quote
		Headlines []models.NewsArticle
	}{q, headlines})
}

// Latest wraps a data block in the news-anchor instructions.
func Latest(dataBlock string) string {
	return render(latestPrompt, dataBlock)
}

// WeeklySummary renders the period summary and per-day change list.
func WeeklySummary(series *models.Series, stats trend.Stats) string {
	return render(weeklySummary, struct {
		Series *models.Series
		Stats  trend.Stats
	}{series, stats})
}

// Weekly wraps a weekly summary in the analyst instructions.
func Weekly(summary string) string {
	return render(weeklyPrompt, summary)
}

// ErrorFallback asks the model for a polite apology that embeds cause.
func ErrorFallback(cause string) string {
	return render(errorPrompt, cause)
}

// render executes a parsed template. The templates are static and typed,
// so a failure here is a programming error; it is logged and whatever was
// rendered so far is returned.
func render(t *template.Template, data any) string {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		log.Error().Err(err).Str("template", t.Name()).Msg("prompt render failed")
	}
	return sb.String()
}
