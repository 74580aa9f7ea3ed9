package scoring

import (
	"math"

	"github.com/tsawler/certscore/features"
)

// Weights are the relative contributions of the five sub-scores
type Weights struct {
	CertificateType float64 `json:"certificate_type"`
	Validity        float64 `json:"validity"`
	Completeness    float64 `json:"completeness"`
	FarmSize        float64 `json:"farm_size"`
	Practices       float64 `json:"practices"`
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.CertificateType + w.Validity + w.Completeness + w.FarmSize + w.Practices
}

// GradeBand maps scores at or above Min to a letter grade
type GradeBand struct {
	Min         float64 `json:"min"`
	Grade       string  `json:"grade"`
	Reliability string  `json:"reliability"`
}

// FarmSizeBand is a half-open hectare range [Min, Max) with its multiplier
type FarmSizeBand struct {
	Category   FarmCategory
	Min        float64
	Max        float64
	Multiplier float64
}

// Policy holds the reference tables used by the Scorer
type Policy struct {
	Weights Weights

	// Grades must be sorted by descending Min. A score below every band
	// receives the last band.
	Grades []GradeBand

	FarmSizes []FarmSizeBand

	// CertificateWeights scores known (type, authority) pairs
	CertificateWeights map[features.CertificateType]map[features.Authority]float64

	TypeOnlyScore      float64 // type known, pair not in CertificateWeights
	AuthorityOnlyScore float64 // type unknown, authority known
	UnknownScore       float64 // neither known
}

// DefaultPolicy returns a fresh copy of the built-in reference tables
func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{
			CertificateType: 0.40,
			Validity:        0.25,
			Completeness:    0.20,
			FarmSize:        0.10,
			Practices:       0.05,
		},
		Grades: []GradeBand{
			{Min: 90, Grade: "A+", Reliability: "Excellent"},
			{Min: 80, Grade: "A", Reliability: "Very Good"},
			{Min: 70, Grade: "B", Reliability: "Good"},
			{Min: 60, Grade: "C", Reliability: "Fair"},
			{Min: 0, Grade: "D", Reliability: "Poor"},
		},
		FarmSizes: []FarmSizeBand{
			{Category: FarmMarginal, Min: 0, Max: 1, Multiplier: 1.1},
			{Category: FarmSmall, Min: 1, Max: 2, Multiplier: 1.05},
			{Category: FarmSemiMedium, Min: 2, Max: 4, Multiplier: 1.0},
			{Category: FarmMedium, Min: 4, Max: 10, Multiplier: 0.95},
			{Category: FarmLarge, Min: 10, Max: math.Inf(1), Multiplier: 0.9},
		},
		CertificateWeights: map[features.CertificateType]map[features.Authority]float64{
			features.TypeOrganicFarming: {
				features.AuthorityNPOP:               95,
				features.AuthorityPGS:                85,
				features.AuthorityTNOCD:              90,
				features.AuthorityAPEDA:              95,
				features.AuthorityRainforestAlliance: 80,
				features.AuthorityTrustea:            75,
				features.AuthorityBioSuisse:          85,
				features.AuthorityNaturland:          80,
			},
			features.TypeAgmarkGrading: {
				features.AuthorityGrade1:       90,
				features.AuthorityGrade2:       80,
				features.AuthorityGrade3:       70,
				features.AuthoritySpecialGrade: 95,
			},
			features.TypeGoodAgriculturalPractices: {
				features.AuthorityIndGAP:    85,
				features.AuthorityGlobalGAP: 90,
				features.AuthorityBharatGAP: 80,
			},
			features.TypeFarmerCapacity: {
				features.AuthorityFCAC:               70,
				features.AuthorityKisanCreditCard:    60,
				features.AuthorityFPOMember:          65,
				features.AuthorityKrishiVigyanKendra: 60,
			},
			features.TypeSpecialty: {
				features.AuthoritySeedCertification:   75,
				features.AuthorityFairTrade:           70,
				features.AuthorityExportCertification: 85,
				features.AuthorityISO:                 90,
			},
		},
		TypeOnlyScore:      60,
		AuthorityOnlyScore: 40,
		UnknownScore:       30,
	}
}

// Lookup returns the reference score of a (type, authority) pair
func (p Policy) Lookup(t features.CertificateType, a features.Authority) (float64, bool) {
	byAuthority, ok := p.CertificateWeights[t]
	if !ok {
		return 0, false
	}
	score, ok := byAuthority[a]
	return score, ok
}

// Grade returns the band that applies to score
func (p Policy) Grade(score float64) GradeBand {
	for _, band := range p.Grades {
		if score >= band.Min {
			return band
		}
	}
	if len(p.Grades) == 0 {
		return GradeBand{Grade: "D", Reliability: "Poor"}
	}
	return p.Grades[len(p.Grades)-1]
}

// Clone returns a deep copy so callers can modify tables safely
func (p Policy) Clone() Policy {
	out := p
	out.Grades = append([]GradeBand(nil), p.Grades...)
	out.FarmSizes = append([]FarmSizeBand(nil), p.FarmSizes...)
	out.CertificateWeights = make(map[features.CertificateType]map[features.Authority]float64, len(p.CertificateWeights))
	for t, byAuthority := range p.CertificateWeights {
		m := make(map[features.Authority]float64, len(byAuthority))
		for a, s := range byAuthority {
			m[a] = s
		}
		out.CertificateWeights[t] = m
	}
	return out
}
