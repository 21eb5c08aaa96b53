package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/indeksai/indeksai/internal/config"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>%s</title>%s</channel></rss>`

func rssItem(title, link, desc, pubDate string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><description><![CDATA[%s]]></description><pubDate>%s</pubDate></item>`,
		title, link, desc, pubDate)
}

func newFeedServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/rss+xml")
		switch r.URL.Path {
		case "/a.xml":
			fmt.Fprintf(w, rssTemplate, "Feed A",
				rssItem("IHSG ditutup menguat 1%", "https://a/1", "<p>Indeks <b>naik</b> tipis</p>", "Fri, 16 Oct 2026 09:30:00 +0000")+
					rssItem("Harga cabai naik", "https://a/2", "<p>Pasar tradisional</p>", "Fri, 16 Oct 2026 10:00:00 +0000"))
		case "/b.xml":
			fmt.Fprintf(w, rssTemplate, "Feed B",
				rssItem("Asing borong saham bank", "https://b/1", "Net buy di bursa", "Fri, 16 Oct 2026 11:00:00 +0000")+
					rssItem("Rupiah melemah", "https://b/2", "Kurs spot", "Thu, 15 Oct 2026 11:00:00 +0000"))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewsHeadlines(t *testing.T) {
	var hits int32
	srv := newFeedServer(t, &hits)

	n := NewNews([]NewsSource{
		{Name: "A", URL: srv.URL + "/a.xml"},
		{Name: "B", URL: srv.URL + "/b.xml"},
		{Name: "Broken", URL: srv.URL + "/broken.xml"},
	}, DefaultKeywords, nil)

	articles, err := n.Headlines(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 market headlines, got %d: %+v", len(articles), articles)
	}
	if articles[0].Title != "Asing borong saham bank" || articles[0].Source != "B" {
		t.Fatalf("newest first: %+v", articles[0])
	}
	if articles[1].Title != "IHSG ditutup menguat 1%" {
		t.Fatalf("unexpected second: %+v", articles[1])
	}
	if !strings.Contains(articles[1].Summary, "**naik**") {
		t.Fatalf("summary should be markdown, got %q", articles[1].Summary)
	}

	before := atomic.LoadInt32(&hits)
	if _, err := n.Headlines(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&hits) != before {
		t.Fatal("second call should be served from cache")
	}
}

func TestNewsHeadlinesLimitAndNoKeywords(t *testing.T) {
	var hits int32
	srv := newFeedServer(t, &hits)

	n := NewNews([]NewsSource{{Name: "A", URL: srv.URL + "/a.xml"}, {Name: "B", URL: srv.URL + "/b.xml"}}, nil, nil)
	articles, err := n.Headlines(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 3 {
		t.Fatalf("expected limit of 3, got %d", len(articles))
	}
}

func TestNewsAllFeedsFail(t *testing.T) {
	var hits int32
	srv := newFeedServer(t, &hits)

	n := NewNews([]NewsSource{{Name: "X", URL: srv.URL + "/x.xml"}}, nil, nil)
	_, err := n.Headlines(context.Background(), 3)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Op != "news" {
		t.Fatalf("expected news FetchError, got %v", err)
	}

	empty := NewNews(nil, nil, nil)
	if _, err := empty.Headlines(context.Background(), 3); !errors.Is(err, ErrNoData) {
		t.Fatalf("no sources should be ErrNoData, got %v", err)
	}
}

func TestNewNewsFromConfig(t *testing.T) {
	cfg := config.Default().News
	n := NewNewsFromConfig(cfg, nil)
	if len(n.sources) != len(cfg.Feeds) || len(n.sources) == 0 {
		t.Fatalf("sources = %+v", n.sources)
	}
	if len(n.keywords) == 0 {
		t.Fatal("keywords should default")
	}
}

func TestCleanHTML(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"<p>IHSG  <b>naik</b></p>", "IHSG naik"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := cleanHTML(tt.in); got != tt.want {
			t.Errorf("cleanHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchesAny(t *testing.T) {
	if !matchesAny("Saham BBCA naik", []string{"saham"}) {
		t.Fatal("should match case-insensitively")
	}
	if matchesAny("Harga emas", []string{"ihsg", "saham"}) {
		t.Fatal("should not match")
	}
}
