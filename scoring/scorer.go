package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/tsawler/certscore/features"
)

// ValidityStatus describes where a certificate stands relative to its date
type ValidityStatus string

const (
	ValidityUnknown ValidityStatus = "validity_unknown"
	ValidLongTerm   ValidityStatus = "valid_long_term"
	ValidMediumTerm ValidityStatus = "valid_medium_term"
	ValidShortTerm  ValidityStatus = "valid_short_term"
	RecentlyExpired ValidityStatus = "recently_expired"
	Expired         ValidityStatus = "expired"
)

// FarmCategory is the Indian land-holding classification of a farm
type FarmCategory string

const (
	FarmUnknown    FarmCategory = "unknown"
	FarmMarginal   FarmCategory = "marginal"
	FarmSmall      FarmCategory = "small"
	FarmSemiMedium FarmCategory = "semi_medium"
	FarmMedium     FarmCategory = "medium"
	FarmLarge      FarmCategory = "large"
)

// Recommendation messages, in the order they are checked
const (
	RecommendMoreCertifications = "Consider obtaining additional certifications to improve credibility"
	RecommendValidityDates      = "Ensure certificate validity dates are clearly mentioned"
	RecommendOrganic            = "Consider organic farming certification for premium market access"
	RecommendFarmSize           = "Include farm size information for better assessment"
	RecommendProductionCerts    = "Complement with production-based certifications like Agmark or Organic"
)

// dateLayouts are tried in order; the first successful parse wins
var dateLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2006-1-2",
	"2 January 2006",
	"2006/1/2",
	"2 Jan 2006",
}

// Breakdown holds the individual sub-scores of a certificate
type Breakdown struct {
	CertificateTypeScore float64        `json:"certificate_type_score"`
	ValidityScore        float64        `json:"validity_score"`
	ValidityStatus       ValidityStatus `json:"validity_status"`
	CompletenessScore    float64        `json:"completeness_score"`
	FarmSizeScore        float64        `json:"farm_size_score"`
	FarmCategory         FarmCategory   `json:"farm_category"`
	PracticesScore       float64        `json:"practices_score"`
}

// Result is the complete scoring outcome for one certificate
type Result struct {
	FinalScore      float64           `json:"final_score"`
	Grade           string            `json:"grade"`
	Reliability     string            `json:"reliability"`
	Breakdown       Breakdown         `json:"scoring_breakdown"`
	Features        features.Features `json:"extracted_features"`
	Recommendations []string          `json:"recommendations"`
}

// Config configures a Scorer
type Config struct {
	Policy Policy

	// Now returns the reference time validity is judged against.
	// Defaults to time.Now.
	Now func() time.Time

	// Location is used to interpret certificate dates. Defaults to time.Local.
	Location *time.Location
}

// DefaultConfig returns a configuration using the built-in policy and the
// wall clock.
func DefaultConfig() Config {
	return Config{
		Policy:   DefaultPolicy(),
		Now:      time.Now,
		Location: time.Local,
	}
}

// Scorer computes certificate scores. It holds no mutable state and is safe
// for concurrent use.
type Scorer struct {
	policy Policy
	now    func() time.Time
	loc    *time.Location
}

// NewScorer creates a scorer with the default configuration
func NewScorer() *Scorer {
	return NewScorerWithConfig(DefaultConfig())
}

// NewScorerWithConfig creates a scorer with custom configuration
func NewScorerWithConfig(config Config) *Scorer {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	return &Scorer{
		policy: config.Policy.Clone(),
		now:    config.Now,
		loc:    config.Location,
	}
}

// Policy returns a copy of the reference tables in use
func (s *Scorer) Policy() Policy {
	return s.policy.Clone()
}

// ParseDate parses a certificate date with the supported layouts. The date
// is taken to start at local midnight. Runs of whitespace, including tabs
// and line breaks from OCR, count as a single space.
func ParseDate(date string, loc *time.Location) (time.Time, bool) {
	date = strings.Join(strings.Fields(date), " ")
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validity scores a certificate date against the current time. Missing or
// unparseable dates score 50. Day counts are whole days rounded down.
func (s *Scorer) Validity(date string) (int, ValidityStatus) {
	if strings.TrimSpace(date) == "" {
		return 50, ValidityUnknown
	}
	certDate, ok := ParseDate(date, s.loc)
	if !ok {
		return 50, ValidityUnknown
	}

	now := s.now()
	if certDate.After(now) {
		remaining := wholeDays(certDate.Sub(now))
		switch {
		case remaining > 365:
			return 100, ValidLongTerm
		case remaining > 90:
			return 90, ValidMediumTerm
		default:
			return 70, ValidShortTerm
		}
	}

	if wholeDays(now.Sub(certDate)) <= 30 {
		return 20, RecentlyExpired
	}
	return 0, Expired
}

func wholeDays(d time.Duration) int {
	return int(d / (24 * time.Hour))
}

// FarmSizeCategory buckets a farm size in hectares. A nil size, or one that
// falls outside every band, is FarmUnknown with multiplier 0.
func (s *Scorer) FarmSizeCategory(size *float64) (FarmCategory, float64) {
	if size == nil {
		return FarmUnknown, 0
	}
	for _, band := range s.policy.FarmSizes {
		if *size >= band.Min && *size < band.Max {
			return band.Category, band.Multiplier
		}
	}
	return FarmUnknown, 0
}

// Score computes the weighted score, grade and recommendations for f
func (s *Scorer) Score(f features.Features) Result {
	var b Breakdown

	b.CertificateTypeScore = s.certificateTypeScore(f)

	validity, status := s.Validity(f.ValidityDate)
	b.ValidityScore = float64(validity)
	b.ValidityStatus = status

	b.CompletenessScore = completenessScore(f)

	category, multiplier := s.FarmSizeCategory(f.FarmSize)
	b.FarmCategory = category
	if category == FarmUnknown {
		b.FarmSizeScore = 50
	} else {
		b.FarmSizeScore = round2(100 * multiplier)
	}

	switch {
	case f.OrganicStatus:
		b.PracticesScore = 100
	case f.CertificateType == features.TypeGoodAgriculturalPractices:
		b.PracticesScore = 85
	default:
		b.PracticesScore = 60
	}

	final := s.finalScore(b)
	band := s.policy.Grade(final)

	return Result{
		FinalScore:      final,
		Grade:           band.Grade,
		Reliability:     band.Reliability,
		Breakdown:       b,
		Features:        f,
		Recommendations: recommendations(f, final),
	}
}

func (s *Scorer) certificateTypeScore(f features.Features) float64 {
	typeKnown := f.CertificateType != features.TypeUnknown
	authorityKnown := f.IssuingAuthority != features.AuthorityUnknown

	switch {
	case typeKnown && authorityKnown:
		if score, ok := s.policy.Lookup(f.CertificateType, f.IssuingAuthority); ok {
			return score
		}
		return s.policy.TypeOnlyScore
	case typeKnown:
		return s.policy.TypeOnlyScore
	case authorityKnown:
		return s.policy.AuthorityOnlyScore
	default:
		return s.policy.UnknownScore
	}
}

func completenessScore(f features.Features) float64 {
	pct := float64(f.PresentRequiredFields()) / float64(features.RequiredFieldCount) * 100
	switch {
	case pct >= 100:
		return 100
	case pct >= 75:
		return 80
	case pct >= 50:
		return 60
	default:
		return 30
	}
}

// finalScore normalizes the weighted sum by the weights applied, clamps it
// to [0, 100] and rounds to two decimals.
func (s *Scorer) finalScore(b Breakdown) float64 {
	w := s.policy.Weights
	maxScore := w.Sum() * 100
	if maxScore <= 0 {
		return 0
	}
	total := b.CertificateTypeScore*w.CertificateType +
		b.ValidityScore*w.Validity +
		b.CompletenessScore*w.Completeness +
		b.FarmSizeScore*w.FarmSize +
		b.PracticesScore*w.Practices
	return round2(Clamp(total / maxScore * 100))
}

// Clamp limits score to the closed range [0, 100]
func Clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func recommendations(f features.Features, score float64) []string {
	recs := []string{}
	if score < 70 {
		recs = append(recs, RecommendMoreCertifications)
	}
	if f.ValidityDate == "" {
		recs = append(recs, RecommendValidityDates)
	}
	if !f.OrganicStatus && f.CertificateType != features.TypeOrganicFarming {
		recs = append(recs, RecommendOrganic)
	}
	if !f.HasFarmSize() {
		recs = append(recs, RecommendFarmSize)
	}
	if f.CertificateType == features.TypeFarmerCapacity {
		recs = append(recs, RecommendProductionCerts)
	}
	return recs
}
