package board

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want Board
	}{
		{"https://boards.greenhouse.io/acme/jobs/123", Greenhouse},
		{"https://job-boards.greenhouse.io/acme/jobs/123", Greenhouse},
		{"https://jobs.ashbyhq.com/acme/uuid-here", Ashby},
		{"https://jobs.lever.co/acme/posting-id", Lever},
		{"https://apply.workable.com/acme/j/ABC123/", Workable},
		{"https://careers.example.com/jobs/42", Unknown},
		{"", Unknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestCompanyFromURL(t *testing.T) {
	tests := []struct {
		board Board
		url   string
		want  string
	}{
		{Greenhouse, "https://boards.greenhouse.io/acme-robotics/jobs/123", "Acme Robotics"},
		{Ashby, "https://jobs.ashbyhq.com/helion/abc", "Helion"},
		{Lever, "https://jobs.lever.co/first-solar/xyz?lever-origin=applied", "First Solar"},
		{Workable, "https://apply.workable.com/octopus-energy/j/ABC/", "Octopus Energy"},
		{Unknown, "https://careers.example.com/jobs/42", ""},
		{Greenhouse, "https://example.com/not-greenhouse", ""},
	}

	for _, tt := range tests {
		if got := CompanyFromURL(tt.board, tt.url); got != tt.want {
			t.Errorf("CompanyFromURL(%s, %q) = %q, want %q", tt.board, tt.url, got, tt.want)
		}
	}
}
