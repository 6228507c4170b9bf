package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/board"
)

// leverExtractor handles jobs.lever.co postings.
type leverExtractor struct{}

func (leverExtractor) Extract(doc *goquery.Document, url string) PartialJob {
	var p PartialJob

	p.Title = selectText(doc, ".posting-headline h2", "h2")
	p.Company = selectText(doc, ".main-header-text-primary")
	if p.Company == "" {
		p.Company = board.CompanyFromURL(board.Lever, url)
	}
	p.Location = selectText(doc, ".posting-categories .location", ".workplaceTypes")

	p.Description = selectDescription(doc, ".posting-description", "[data-qa=job-description]")

	return p
}
