package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/board"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// longBody pads a description past the minimum length guard.
func longBody(s string) string {
	return s + " " + strings.Repeat("We build large-scale systems. ", 10)
}

func TestGreenhouseExtract(t *testing.T) {
	html := `<html><body>
		<h1 class="app-title">Senior Platform Engineer</h1>
		<span class="company-name">Acme Robotics</span>
		<div class="location">Berlin, Germany</div>
		<div id="content"><p>` + longBody("Own our Kubernetes platform.") + `</p></div>
	</body></html>`

	p := NewRegistry().For(board.Greenhouse).Extract(docFromHTML(t, html), "https://boards.greenhouse.io/acme/jobs/1")

	if p.Title != "Senior Platform Engineer" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Company != "Acme Robotics" {
		t.Errorf("company = %q", p.Company)
	}
	if p.Location != "Berlin, Germany" {
		t.Errorf("location = %q", p.Location)
	}
	if !strings.Contains(p.Description, "Own our Kubernetes platform.") {
		t.Errorf("description = %q", p.Description)
	}
}

func TestGreenhouseCompanyFallsBackToURL(t *testing.T) {
	html := `<html><body><h1>SRE</h1></body></html>`
	p := NewRegistry().For(board.Greenhouse).Extract(docFromHTML(t, html), "https://boards.greenhouse.io/acme-robotics/jobs/1")
	if p.Company != "Acme Robotics" {
		t.Errorf("company = %q, want slug-derived name", p.Company)
	}
}

func TestLeverExtract(t *testing.T) {
	html := `<html><body>
		<div class="posting-headline"><h2>Staff Engineer</h2></div>
		<div class="posting-categories"><span class="location">Remote - EU</span></div>
		<div class="posting-description"><p>` + longBody("Lead our storage team.") + `</p></div>
	</body></html>`

	p := NewRegistry().For(board.Lever).Extract(docFromHTML(t, html), "https://jobs.lever.co/helion/abc")

	if p.Title != "Staff Engineer" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Company != "Helion" {
		t.Errorf("company = %q", p.Company)
	}
	if p.Location != "Remote - EU" {
		t.Errorf("location = %q", p.Location)
	}
}

func TestGenericExtractUsesOGSiteName(t *testing.T) {
	html := `<html><head>
		<meta property="og:site_name" content="Octopus Energy">
	</head><body>
		<h1>Grid Software Engineer</h1>
		<main><p>` + longBody("Help us balance the grid.") + `</p></main>
	</body></html>`

	p := NewRegistry().For(board.Unknown).Extract(docFromHTML(t, html), "https://careers.example.com/jobs/1")

	if p.Title != "Grid Software Engineer" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Company != "Octopus Energy" {
		t.Errorf("company = %q", p.Company)
	}
	if !strings.Contains(p.Description, "balance the grid") {
		t.Errorf("description = %q", p.Description)
	}
}

func TestShortDescriptionRejected(t *testing.T) {
	html := `<html><body>
		<h1>SRE</h1>
		<div id="content">Apply now</div>
	</body></html>`

	p := NewRegistry().For(board.Greenhouse).Extract(docFromHTML(t, html), "https://boards.greenhouse.io/acme/jobs/1")
	if p.Description != "" {
		t.Errorf("description = %q, want empty for stub content", p.Description)
	}
}

func TestBodyFallbackStripsChrome(t *testing.T) {
	html := `<html><body>
		<nav>Home | Jobs | About</nav>
		<h1>SRE</h1>
		<p>` + longBody("Real posting text.") + `</p>
		<footer>© Acme</footer>
		<script>analytics()</script>
	</body></html>`

	p := NewRegistry().For(board.Greenhouse).Extract(docFromHTML(t, html), "https://boards.greenhouse.io/acme/jobs/1")

	if strings.Contains(p.Description, "analytics()") {
		t.Errorf("description contains script text: %q", p.Description)
	}
	if strings.Contains(p.Description, "Home | Jobs") {
		t.Errorf("description contains nav text: %q", p.Description)
	}
	if !strings.Contains(p.Description, "Real posting text.") {
		t.Errorf("description = %q", p.Description)
	}
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	got := cleanText("  Senior\n\tPlatform   Engineer ")
	if got != "Senior Platform Engineer" {
		t.Errorf("cleanText = %q", got)
	}
}

func TestRegistryRoutesAllKnownBoards(t *testing.T) {
	r := NewRegistry()
	for _, b := range board.Known() {
		if r.For(b) == r.fallback {
			t.Errorf("board %s has no dedicated strategy", b)
		}
	}
}
