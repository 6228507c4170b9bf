package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/board"
)

// greenhouseExtractor handles boards.greenhouse.io and job-boards.greenhouse.io
// postings.
type greenhouseExtractor struct{}

func (greenhouseExtractor) Extract(doc *goquery.Document, url string) PartialJob {
	var p PartialJob

	p.Title = selectText(doc, "h1.app-title", ".job-title", "h1")
	p.Company = selectText(doc, ".company-name")
	if p.Company == "" {
		p.Company = board.CompanyFromURL(board.Greenhouse, url)
	}
	p.Location = selectText(doc, ".location")

	p.Description = selectDescription(doc,
		"#content",
		".job-description",
		".content",
		"[id*=content]",
		"[class*=description]",
		"main",
		"article",
	)
	if p.Description == "" {
		p.Description = bodyFallback(doc, "body")
	}

	return p
}
