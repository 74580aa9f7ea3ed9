package features

import "encoding/json"

// CertificateType is the closed set of certificate families that can be
// recognized in a document.
type CertificateType string

const (
	TypeUnknown                   CertificateType = ""
	TypeOrganicFarming            CertificateType = "organic_farming"
	TypeAgmarkGrading             CertificateType = "agmark_grading"
	TypeGoodAgriculturalPractices CertificateType = "good_agricultural_practices"
	TypeFarmerCapacity            CertificateType = "farmer_capacity"
	TypeSpecialty                 CertificateType = "specialty_certificates"
)

// CertificateTypes lists every known type in reference-table order
var CertificateTypes = []CertificateType{
	TypeOrganicFarming,
	TypeAgmarkGrading,
	TypeGoodAgriculturalPractices,
	TypeFarmerCapacity,
	TypeSpecialty,
}

// Valid reports whether t is one of the known types
func (t CertificateType) Valid() bool {
	for _, known := range CertificateTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Authority identifies the body or scheme behind a certificate. The codes
// double as keys of the scoring reference table.
type Authority string

const (
	AuthorityUnknown Authority = ""

	// Organic farming
	AuthorityNPOP               Authority = "npop_certified"
	AuthorityPGS                Authority = "pgs_certified"
	AuthorityTNOCD              Authority = "tnocd_certified"
	AuthorityAPEDA              Authority = "apeda_certified"
	AuthorityRainforestAlliance Authority = "rainforest_alliance"
	AuthorityTrustea            Authority = "trustea"
	AuthorityBioSuisse          Authority = "bio_suisse"
	AuthorityNaturland          Authority = "naturland"

	// Agmark grading
	AuthorityGrade1       Authority = "grade_1"
	AuthorityGrade2       Authority = "grade_2"
	AuthorityGrade3       Authority = "grade_3"
	AuthoritySpecialGrade Authority = "special_grade"

	// Good agricultural practices
	AuthorityIndGAP    Authority = "indgap_certified"
	AuthorityGlobalGAP Authority = "global_gap"
	AuthorityBharatGAP Authority = "bharat_gap"

	// Farmer capacity
	AuthorityFCAC               Authority = "fcac_certified"
	AuthorityKisanCreditCard    Authority = "kisan_credit_card"
	AuthorityFPOMember          Authority = "fpo_member"
	AuthorityKrishiVigyanKendra Authority = "krishi_vigyan_kendra"

	// Specialty certificates
	AuthoritySeedCertification   Authority = "seed_certification"
	AuthorityFairTrade           Authority = "fair_trade"
	AuthorityExportCertification Authority = "export_certification"
	AuthorityISO                 Authority = "iso_certified"

	// Issuers without a scheme-specific score
	AuthorityGovernmentAgency Authority = "government_agency"
)

// Authorities lists every known authority code
var Authorities = []Authority{
	AuthorityNPOP, AuthorityPGS, AuthorityTNOCD, AuthorityAPEDA,
	AuthorityRainforestAlliance, AuthorityTrustea, AuthorityBioSuisse, AuthorityNaturland,
	AuthorityGrade1, AuthorityGrade2, AuthorityGrade3, AuthoritySpecialGrade,
	AuthorityIndGAP, AuthorityGlobalGAP, AuthorityBharatGAP,
	AuthorityFCAC, AuthorityKisanCreditCard, AuthorityFPOMember, AuthorityKrishiVigyanKendra,
	AuthoritySeedCertification, AuthorityFairTrade, AuthorityExportCertification, AuthorityISO,
	AuthorityGovernmentAgency,
}

// Valid reports whether a is one of the known authority codes
func (a Authority) Valid() bool {
	for _, known := range Authorities {
		if a == known {
			return true
		}
	}
	return false
}

// Features is the structured record recovered from certificate text.
// Empty strings and a nil FarmSize mean the field was not found.
type Features struct {
	CertificateType    CertificateType
	IssuingAuthority   Authority
	ValidityDate       string // raw matched date text
	FarmerName         string
	FarmSize           *float64 // hectares
	CertificateNumber  string
	Location           string
	OrganicStatus      bool
	CropTypes          []string
	CertificationGrade string
}

// HasFarmSize reports whether a farm size was found
func (f Features) HasFarmSize() bool {
	return f.FarmSize != nil
}

// PresentRequiredFields counts the fields that make a certificate complete:
// farmer name, certificate number, issuing authority and validity date.
func (f Features) PresentRequiredFields() int {
	n := 0
	for _, present := range []bool{
		f.FarmerName != "",
		f.CertificateNumber != "",
		f.IssuingAuthority != AuthorityUnknown,
		f.ValidityDate != "",
	} {
		if present {
			n++
		}
	}
	return n
}

// RequiredFieldCount is the number of fields checked by PresentRequiredFields
const RequiredFieldCount = 4

type featuresJSON struct {
	CertificateType    *string  `json:"certificate_type"`
	IssuingAuthority   *string  `json:"issuing_authority"`
	ValidityDate       *string  `json:"validity_date"`
	FarmerName         *string  `json:"farmer_name"`
	FarmSize           *float64 `json:"farm_size"`
	CropTypes          []string `json:"crop_types"`
	CertificationGrade *string  `json:"certification_grade"`
	CertificateNumber  *string  `json:"certificate_number"`
	OrganicStatus      bool     `json:"organic_status"`
	Location           *string  `json:"location"`
}

// MarshalJSON encodes unset fields as null and crop_types as a list
func (f Features) MarshalJSON() ([]byte, error) {
	crops := f.CropTypes
	if crops == nil {
		crops = []string{}
	}
	return json.Marshal(featuresJSON{
		CertificateType:    optional(string(f.CertificateType)),
		IssuingAuthority:   optional(string(f.IssuingAuthority)),
		ValidityDate:       optional(f.ValidityDate),
		FarmerName:         optional(f.FarmerName),
		FarmSize:           f.FarmSize,
		CropTypes:          crops,
		CertificationGrade: optional(f.CertificationGrade),
		CertificateNumber:  optional(f.CertificateNumber),
		OrganicStatus:      f.OrganicStatus,
		Location:           optional(f.Location),
	})
}

// UnmarshalJSON accepts the encoding produced by MarshalJSON
func (f *Features) UnmarshalJSON(data []byte) error {
	var aux featuresJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = Features{
		CertificateType:    CertificateType(deref(aux.CertificateType)),
		IssuingAuthority:   Authority(deref(aux.IssuingAuthority)),
		ValidityDate:       deref(aux.ValidityDate),
		FarmerName:         deref(aux.FarmerName),
		FarmSize:           aux.FarmSize,
		CertificateNumber:  deref(aux.CertificateNumber),
		Location:           deref(aux.Location),
		OrganicStatus:      aux.OrganicStatus,
		CropTypes:          aux.CropTypes,
		CertificationGrade: deref(aux.CertificationGrade),
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
