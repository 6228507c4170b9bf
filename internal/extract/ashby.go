package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/board"
)

// ashbyExtractor handles jobs.ashbyhq.com postings. Ashby renders most of
// the page client-side, so the selectors are looser than the other boards.
type ashbyExtractor struct{}

func (ashbyExtractor) Extract(doc *goquery.Document, url string) PartialJob {
	var p PartialJob

	p.Title = selectText(doc, "h1", ".job-title", `[data-testid="job-title"]`)
	p.Company = board.CompanyFromURL(board.Ashby, url)
	p.Location = selectText(doc, ".location", "[class*=location]")

	p.Description = selectDescription(doc,
		"[class*=description]",
		"main",
		"article",
		"[data-testid*=description]",
		".job-details",
		".job-content",
	)
	if p.Description == "" {
		p.Description = bodyFallback(doc, "main")
	}

	return p
}
