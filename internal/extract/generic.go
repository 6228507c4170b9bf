package extract

import (
	"github.com/PuerkitoBio/goquery"
)

// genericExtractor is the best-effort fallback for unknown boards. It leans
// on page conventions (h1, og:site_name, main content) and accepts that any
// field except the title may come back empty.
type genericExtractor struct{}

func (genericExtractor) Extract(doc *goquery.Document, url string) PartialJob {
	var p PartialJob

	p.Title = selectText(doc, "h1", `[class*=job-title]`, "title")

	p.Company, _ = doc.Find(`meta[property="og:site_name"]`).First().Attr("content")
	p.Company = cleanText(p.Company)

	p.Location = selectText(doc, "[class*=location]")

	p.Description = selectDescription(doc, "[class*=description]", "main", "article")
	if p.Description == "" {
		p.Description = bodyFallback(doc, "body")
	}

	return p
}
