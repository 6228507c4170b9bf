package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/board"
)

// workableExtractor handles apply.workable.com postings.
type workableExtractor struct{}

func (workableExtractor) Extract(doc *goquery.Document, url string) PartialJob {
	var p PartialJob

	p.Title = selectText(doc, "h1", `[data-ui="job-title"]`)
	p.Company = selectText(doc, ".company-name")
	if p.Company == "" {
		p.Company = board.CompanyFromURL(board.Workable, url)
	}
	p.Location = selectText(doc, ".job-location", `[data-ui="job-location"]`)

	p.Description = selectDescription(doc, ".description", `[data-ui="job-description"]`)

	return p
}
