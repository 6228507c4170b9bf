package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Verdict is the successfully parsed scoring response.
type Verdict struct {
	FitScore          int    `json:"fit_score"`
	Category          string `json:"category"`
	Justification     string `json:"justification"`
	PositioningAdvice string `json:"positioning_advice"`
}

// ParseError is returned when the model's response could not be turned into
// a Verdict. Callers branch on it rather than probing optional fields.
type ParseError struct {
	RawText string
	Reason  string
}

func (e *ParseError) Error() string {
	return "parse verdict: " + e.Reason
}

var validCategories = map[string]bool{
	"AI/Tech":        true,
	"Sustainability": true,
	"Hybrid":         true,
}

// ParseVerdict interprets the model's free-form response as a scoring
// verdict. Markdown code fences are tolerated; everything else is strict:
// the JSON must parse, fit_score must be an integer in [0,100], and the
// justification must be present. Unknown categories are normalized to
// Hybrid rather than rejected.
func ParseVerdict(raw string) (Verdict, error) {
	cleaned := stripCodeFences(raw)

	var v Verdict
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&v); err != nil {
		return Verdict{}, &ParseError{RawText: raw, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if v.FitScore < 0 || v.FitScore > 100 {
		return Verdict{}, &ParseError{RawText: raw, Reason: fmt.Sprintf("fit_score %d out of range", v.FitScore)}
	}
	if v.Justification == "" {
		return Verdict{}, &ParseError{RawText: raw, Reason: "missing justification"}
	}

	if !validCategories[v.Category] {
		v.Category = "Hybrid"
	}

	return v, nil
}

// Location is the successfully parsed location-classification response.
type Location struct {
	LocationText string
	Country      string
	Region       string
	USBased      string // "yes", "no", or "unknown"
	Confidence   float64
	Evidence     string
}

// ParseLocation interprets the model's response as a location verdict.
// Every field of the response shape must be present; is_us tolerates both
// JSON booleans and strings, and confidence is clamped to [0,1].
func ParseLocation(raw string) (Location, error) {
	cleaned := stripCodeFences(raw)

	var resp struct {
		LocationText *string         `json:"location_text"`
		Country      *string         `json:"country"`
		Region       *string         `json:"region"`
		IsUS         json.RawMessage `json:"is_us"`
		Confidence   *float64        `json:"confidence"`
		Evidence     string          `json:"evidence"`
	}
	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(&resp); err != nil {
		return Location{}, &ParseError{RawText: raw, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	for field, ok := range map[string]bool{
		"location_text": resp.LocationText != nil,
		"country":       resp.Country != nil,
		"region":        resp.Region != nil,
		"is_us":         resp.IsUS != nil,
		"confidence":    resp.Confidence != nil,
	} {
		if !ok {
			return Location{}, &ParseError{RawText: raw, Reason: "missing " + field}
		}
	}

	confidence := *resp.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return Location{
		LocationText: *resp.LocationText,
		Country:      *resp.Country,
		Region:       *resp.Region,
		USBased:      normalizeUSBased(resp.IsUS),
		Confidence:   confidence,
		Evidence:     resp.Evidence,
	}, nil
}

// normalizeUSBased folds the is_us field, which models emit as a boolean or
// a free-form string, into yes/no/unknown.
func normalizeUSBased(raw json.RawMessage) string {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "yes"
		}
		return "no"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "us", "usa":
			return "yes"
		case "false", "no", "non-us", "non us":
			return "no"
		}
	}
	return "unknown"
}

// stripCodeFences removes a surrounding ```json … ``` (or bare ```) block.
func stripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(cleaned, "```json"); ok {
		cleaned = after
	} else if after, ok := strings.CutPrefix(cleaned, "```"); ok {
		cleaned = after
	}
	if before, ok := strings.CutSuffix(strings.TrimSpace(cleaned), "```"); ok {
		cleaned = before
	}
	return strings.TrimSpace(cleaned)
}
