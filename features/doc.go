// Package features turns the aggregated text of a certificate into a
// structured [Features] record.
//
// [Extract] is total: malformed, empty or unrelated input yields a record
// with every field unset. Text is NFKC-normalized first so compatibility
// forms produced by OCR engines (ligatures, full-width digits) match the
// field patterns.
//
// # Rules
//
// Keyword rules run on a lower-cased copy of the text and the first match in
// table order wins:
//
//   - certificate type: organic/npop/pgs, then agmark/grading/grade, then
//     gap/good agricultural, then fcac/capacity assessment
//   - issuing authority: apeda, tnocd/tamil nadu organic, ministry or
//     department of agriculture, rainforest alliance, trustea
//
// Field patterns run on the original text. The validity date is the last
// match of the first date pattern that matches at all, so a certificate
// quoting "from 01-01-2024 to 31-12-2024" yields "31-12-2024".
//
//	f := features.Extract(text)
//	if f.CertificateType == features.TypeOrganicFarming {
//	    fmt.Println(f.IssuingAuthority, f.ValidityDate)
//	}
package features
