package features

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// AcreToHectare converts acres to hectares
const AcreToHectare = 0.4047

type keywordRule[T any] struct {
	keywords []string
	value    T
}

// typeRules are tested in order against the lower-cased text
var typeRules = []keywordRule[CertificateType]{
	{[]string{"organic", "npop", "pgs"}, TypeOrganicFarming},
	{[]string{"agmark", "grading", "grade"}, TypeAgmarkGrading},
	{[]string{"gap", "good agricultural"}, TypeGoodAgriculturalPractices},
	{[]string{"fcac", "capacity assessment"}, TypeFarmerCapacity},
}

// authorityRules are tested in order against the lower-cased text
var authorityRules = []keywordRule[Authority]{
	{[]string{"apeda"}, AuthorityAPEDA},
	{[]string{"tnocd", "tamil nadu organic"}, AuthorityTNOCD},
	{[]string{"ministry of agriculture", "department of agriculture"}, AuthorityGovernmentAgency},
	{[]string{"rainforest alliance"}, AuthorityRainforestAlliance},
	{[]string{"trustea"}, AuthorityTrustea},
}

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{4}`),
		regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}`),
		regexp.MustCompile(`\d{1,2}\s+\w+\s+\d{4}`),
	}

	namePattern     = regexp.MustCompile(`(?i)(?:name|farmer)[:\s]+([A-Za-z\s]+?)(?:\n|certificate|farm)`)
	sizePattern     = regexp.MustCompile(`(\d+\.?\d*)\s*(hectare|acre|ha)`)
	certNumPattern  = regexp.MustCompile(`(?i:certificate|cert|reg)\.?\s*(?i:no|number)[:\s]*([A-Z0-9/-]+)`)
	locationPattern = regexp.MustCompile(`(?i)(?:district|state|location)[:\s]+([A-Za-z\s]+?)(?:\n|pin|zip)`)
	gradePattern    = regexp.MustCompile(`(?i)\b(special\s+grade|grade[\s:-]*([1-3]))\b`)
	cropPattern     = regexp.MustCompile(`(?i)\b(?:crops?|products?)\s*[:-]\s*([^\n]+)`)
	cropSeparator   = regexp.MustCompile(`(?i)\s*(?:,|&|\band\b)\s*`)
)

// Extract parses certificate text into Features. Keyword tests run on a
// lower-cased copy while field patterns run on the original case. Extract
// never fails: fields that cannot be found stay unset.
func Extract(text string) Features {
	text = norm.NFKC.String(text)
	lower := strings.ToLower(text)

	var f Features

	f.CertificateType = matchKeywords(lower, typeRules)
	if f.CertificateType == TypeOrganicFarming {
		f.OrganicStatus = true
	}
	f.IssuingAuthority = matchKeywords(lower, authorityRules)

	f.ValidityDate = extractValidityDate(text)

	if m := namePattern.FindStringSubmatch(text); m != nil {
		f.FarmerName = strings.TrimSpace(m[1])
	}

	if m := sizePattern.FindStringSubmatch(lower); m != nil {
		if size, err := strconv.ParseFloat(m[1], 64); err == nil {
			if m[2] == "acre" {
				size *= AcreToHectare
			}
			f.FarmSize = &size
		}
	}

	if m := certNumPattern.FindStringSubmatch(text); m != nil {
		f.CertificateNumber = strings.TrimSpace(m[1])
	}

	if m := locationPattern.FindStringSubmatch(text); m != nil {
		f.Location = strings.TrimSpace(m[1])
	}

	if m := gradePattern.FindStringSubmatch(text); m != nil {
		if m[2] != "" {
			f.CertificationGrade = "Grade " + m[2]
		} else {
			f.CertificationGrade = "Special Grade"
		}
	}

	f.CropTypes = extractCrops(text)

	return f
}

func matchKeywords[T any](lower string, rules []keywordRule[T]) T {
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.value
			}
		}
	}
	var zero T
	return zero
}

// extractValidityDate returns the last match of the first date pattern
// that matches anywhere in text.
func extractValidityDate(text string) string {
	for _, p := range datePatterns {
		if matches := p.FindAllString(text, -1); len(matches) > 0 {
			return matches[len(matches)-1]
		}
	}
	return ""
}

func extractCrops(text string) []string {
	m := cropPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var crops []string
	for _, part := range cropSeparator.Split(m[1], -1) {
		if part = strings.TrimSpace(part); part != "" {
			crops = append(crops, part)
		}
	}
	return crops
}
