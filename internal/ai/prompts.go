package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/fit_score.md
var fitScorePromptRaw string

// FitScoreTemplate is the parsed scoring prompt. Parsed once at package
// init; reused on every Score call.
var FitScoreTemplate = template.Must(template.New("fit_score").Parse(fitScorePromptRaw))

//go:embed prompts/location.md
var locationPromptRaw string

// LocationTemplate is the parsed location-classification prompt.
var LocationTemplate = template.Must(template.New("location").Parse(locationPromptRaw))
