// Package scoring computes a weighted reliability score for a certificate
// from its extracted features.
//
// The score combines five sub-scores:
//
//	sub-score          weight  source
//	certificate_type   0.40    (type, authority) reference table
//	validity           0.25    days until or since the validity date
//	completeness       0.20    name, number, authority and date present
//	farm_size          0.10    land-holding category multiplier
//	practices          0.05    organic or GAP certification
//
// The final score is the weighted sum normalized by the weights applied,
// clamped to [0, 100] and rounded to two decimals. The grade is taken from
// the rounded value, so 90 is A+ and 89.99 is A.
//
// # Clock
//
// Validity depends on the current date. A [Scorer] reads the time through
// [Config.Now] so results are reproducible in tests:
//
//	cfg := scoring.DefaultConfig()
//	cfg.Now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
//	s := scoring.NewScorerWithConfig(cfg)
//	result := s.Score(features.Extract(text))
//
// # Reference Tables
//
// [DefaultPolicy] returns the built-in tables. A Scorer copies its policy on
// construction and never mutates it.
package scoring
