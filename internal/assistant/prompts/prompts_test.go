package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/indeksai/indeksai/internal/analysis/trend"
	"github.com/indeksai/indeksai/pkg/models"
)

// ── Persona ──

func TestSystemInstruction(t *testing.T) {
	for _, kw := range []string{"Indeks AI", "IHSG", "objektif", "rekomendasi beli/jual", "profesional berlisensi"} {
		if !strings.Contains(SystemInstruction, kw) {
			t.Errorf("SystemInstruction should mention %q", kw)
		}
	}
}

func TestEducational(t *testing.T) {
	got := Educational("Apa itu IPO?")
	if !strings.HasPrefix(got, "Apa itu IPO?\n\nPENTING:") {
		t.Errorf("Educational: got %q", got)
	}
	if !strings.HasSuffix(got, "Jangan berhenti di tengah kalimat.") {
		t.Errorf("Educational should end with the completeness instruction: %q", got)
	}
}

// ── Latest ──

func testQuote() *models.Quote {
	return &models.Quote{
		Symbol:        "^JKSE",
		Close:         7171.25,
		PrevClose:     7100,
		ChangePoints:  71.25,
		ChangePercent: 71.25 / 7100 * 100,
		TradingDate:   time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		DayName:       "Jumat",
		DateLabel:     "16 Oktober 2026",
		IsCurrentDay:  true,
	}
}

func TestLatestDataCurrentDay(t *testing.T) {
	want := `Data IHSG dari Yahoo Finance:
- Tanggal Data: Jumat, 16 Oktober 2026
- Status Pasar: Data hari ini (real-time)
- Penutupan: 7171.25 poin
- Perubahan: +71.25 poin (+1.00%)
- Status: NAIK
- Penutupan sebelumnya: 7100.00 poin

Catatan: Data ini REAL dari Yahoo Finance ticker ^JKSE`

	if got := LatestData(testQuote(), nil); got != want {
		t.Errorf("LatestData mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestLatestDataStale(t *testing.T) {
	q := testQuote()
	q.IsCurrentDay = false
	q.DaysStale = 2
	q.StaleReason = "hari ini akhir pekan (Sabtu/Minggu)"
	q.ChangePoints = -50.5
	q.ChangePercent = -0.7

	got := LatestData(q, nil)
	for _, want := range []string{
		"- Status Pasar: Data 2 hari lalu (data hari ini belum tersedia)\n- Alasan: hari ini akhir pekan (Sabtu/Minggu)\n- Penutupan:",
		"- Perubahan: -50.50 poin (-0.70%)",
		"- Status: TURUN",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("LatestData should contain %q\ngot:\n%s", want, got)
		}
	}
}

func TestLatestDataHeadlines(t *testing.T) {
	got := LatestData(testQuote(), []models.NewsArticle{
		{Title: "IHSG menguat jelang akhir pekan", Source: "Antara"},
		{Title: "Asing catat net buy", Source: "Kontan"},
	})
	want := "- Penutupan sebelumnya: 7100.00 poin\n\nBerita terkait:\n- IHSG menguat jelang akhir pekan (Antara)\n- Asing catat net buy (Kontan)\n\nCatatan:"
	if !strings.Contains(got, want) {
		t.Errorf("headline section mismatch\ngot:\n%s", got)
	}
}

func TestLatestPrompt(t *testing.T) {
	data := LatestData(testQuote(), nil)
	got := Latest(data)
	if !strings.HasPrefix(got, "Bertindak sebagai penyiar berita pasar profesional") {
		t.Errorf("Latest prompt should open with the anchor instruction")
	}
	if !strings.Contains(got, "\n\n"+data+"\n\n") {
		t.Error("Latest prompt should embed the data block")
	}
	if !strings.HasSuffix(got, "- Berikan respons LENGKAP dalam satu output") {
		t.Error("Latest prompt should end with the completeness instruction")
	}
}

// ── Weekly ──

func testSeries() *models.Series {
	closes := []float64{100, 102, 101, 105, 103, 110, 115}
	s := &models.Series{Symbol: "^JKSE"}
	for i, c := range closes {
		bar := models.DailyBar{
			Date:      time.Date(2026, 10, 8+i, 0, 0, 0, 0, time.UTC),
			DateLabel: time.Date(2026, 10, 8+i, 0, 0, 0, 0, time.UTC).Format("02 Jan 2006"),
			DayName:   "Hari",
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
		}
		if i > 0 {
			bar.Change = c - closes[i-1]
			bar.ChangePct = bar.Change / closes[i-1] * 100
		}
		s.Bars = append(s.Bars, bar)
	}
	return s
}

func TestWeeklySummary(t *testing.T) {
	series := testSeries()
	stats, err := trend.Summarize(series)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	got := WeeklySummary(series, stats)

	for _, want := range []string{
		"Data IHSG 7 hari trading terakhir:\n",
		"- Periode: 08 Oct 2026 sampai 14 Oct 2026\n",
		"- Penutupan awal: 100.00\n",
		"- Penutupan akhir: 115.00\n",
		"- Perubahan: +15.00 poin (+15.00%)\n",
		"- Tertinggi: 116.00, Terendah: 99.00\n",
		"- Kenaikan harian terbesar: 13 Oct 2026 (+6.80%)\n",
		"\n\nDetail harian:\n- 08 Oct 2026 (Hari): 100.00 (+0.00 / +0.00%)\n",
		"- 14 Oct 2026 (Hari): 115.00 (+5.00 / +4.55%)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("WeeklySummary should contain %q\ngot:\n%s", want, got)
		}
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("WeeklySummary should not end with a newline")
	}
}

func TestWeeklyPrompt(t *testing.T) {
	got := Weekly("RINGKASAN")
	if !strings.Contains(got, "seminggu terakhir:\n\nRINGKASAN\n\nFormat:") {
		t.Errorf("Weekly prompt should embed the summary: %s", got)
	}
	if !strings.Contains(got, "jangan buat prediksi atau rekomendasi") {
		t.Error("Weekly prompt should forbid predictions")
	}
}

// ── Error fallback ──

func TestErrorFallbackPrompt(t *testing.T) {
	got := ErrorFallback("Data tidak tersedia")
	if !strings.HasPrefix(got, "Data IHSG dari sumber eksternal gagal diambil dengan error: Data tidak tersedia. ") {
		t.Errorf("ErrorFallback should embed the cause: %q", got)
	}
	for _, kw := range []string{"Coba beberapa saat lagi", "website BEI", "edukasi pasar modal"} {
		if !strings.Contains(got, kw) {
			t.Errorf("ErrorFallback should mention %q", kw)
		}
	}
}
