package scoring

import "github.com/tsawler/certscore/features"

// descriptions names the scheme behind each authority code
var descriptions = map[features.Authority]string{
	features.AuthorityNPOP:                "National Programme for Organic Production",
	features.AuthorityPGS:                 "Participatory Guarantee System",
	features.AuthorityTNOCD:               "Tamil Nadu Organic Certification",
	features.AuthorityAPEDA:               "Agricultural and Processed Food Products Export Development Authority",
	features.AuthorityRainforestAlliance:  "Rainforest Alliance",
	features.AuthorityTrustea:             "Trustea sustainable tea code",
	features.AuthorityBioSuisse:           "Bio Suisse organic standard",
	features.AuthorityNaturland:           "Naturland organic standard",
	features.AuthorityGrade1:              "Highest quality grade",
	features.AuthorityGrade2:              "Good quality grade",
	features.AuthorityGrade3:              "Standard quality grade",
	features.AuthoritySpecialGrade:        "Special quality grade",
	features.AuthorityIndGAP:              "India Good Agricultural Practices",
	features.AuthorityGlobalGAP:           "Global Good Agricultural Practices",
	features.AuthorityBharatGAP:           "Bharat Good Agricultural Practices",
	features.AuthorityFCAC:                "Farmer Capacity Assessment and Certification",
	features.AuthorityKisanCreditCard:     "Kisan Credit Card holder",
	features.AuthorityFPOMember:           "Farmer Producer Organisation member",
	features.AuthorityKrishiVigyanKendra:  "Krishi Vigyan Kendra training",
	features.AuthoritySeedCertification:   "Seed certification agency",
	features.AuthorityFairTrade:           "Fair Trade certification",
	features.AuthorityExportCertification: "Export certification",
	features.AuthorityISO:                 "ISO management system certification",
	features.AuthorityGovernmentAgency:    "Government agriculture department",
}

// Description returns a human-readable name for an authority code
func Description(a features.Authority) string {
	return descriptions[a]
}

// Standard is one entry of the supported-standards catalogue
type Standard struct {
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// Standards returns the scored (type, authority) pairs of the policy keyed
// by type then authority.
func (p Policy) Standards() map[features.CertificateType]map[features.Authority]Standard {
	out := make(map[features.CertificateType]map[features.Authority]Standard, len(p.CertificateWeights))
	for t, byAuthority := range p.CertificateWeights {
		entries := make(map[features.Authority]Standard, len(byAuthority))
		for a, score := range byAuthority {
			entries[a] = Standard{Score: score, Description: Description(a)}
		}
		out[t] = entries
	}
	return out
}
