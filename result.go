package certscore

import (
	"github.com/tsawler/certscore/features"
	"github.com/tsawler/certscore/model"
	"github.com/tsawler/certscore/scoring"
)

// Response statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of one analysis
type Result struct {
	// Text is the page report the features were parsed from
	Text string

	Score  scoring.Result
	Status string

	// Pages is nil for AnalyzeText
	Pages    []*model.Page
	Warnings []Warning
}

// Features returns the parsed certificate fields
func (r *Result) Features() features.Features {
	return r.Score.Features
}

// Analysis is the certificate part of a Response
type Analysis struct {
	ExtractedFeatures features.Features `json:"extracted_features"`
	ScoringResult     scoring.Result    `json:"scoring_result"`
}

// Response is the wire shape of a successful analysis
type Response struct {
	OCRText             string   `json:"ocr_text"`
	CertificateAnalysis Analysis `json:"certificate_analysis"`
	Status              string   `json:"status"`
}

// ErrorResponse is the wire shape of a failed analysis
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Response returns the wire shape of r
func (r *Result) Response() Response {
	return Response{
		OCRText: r.Text,
		CertificateAnalysis: Analysis{
			ExtractedFeatures: r.Score.Features,
			ScoringResult:     r.Score,
		},
		Status: r.Status,
	}
}

// FailureResponse returns the wire shape reporting err
func FailureResponse(err error) ErrorResponse {
	return ErrorResponse{Status: StatusError, Message: err.Error()}
}
