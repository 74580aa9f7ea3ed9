// Package tables extracts table regions from certificate pages.
//
// Detection is delegated to a [Detector]; by default the tabula geometric
// detector, which clusters positioned text fragments and aligns them with the
// lines and rectangles drawn on the page. The [Extractor] then cleans every
// candidate:
//
//   - cell text is whitespace-normalized (see [NormalizeCell])
//   - rows whose cells are all blank are dropped
//   - tables left with fewer than two rows are discarded
//
// Accepted tables keep detector order and carry their page index, position
// and bounding rectangle so text blocks inside them can be excluded from the
// page prose.
//
//	e := tables.NewExtractor()
//	found, err := e.Extract(ctx, page)
//	for _, t := range found {
//	    fmt.Println(t.ToGrid())
//	}
//
// # Audit Sinks
//
// Every accepted table is also handed to an [AuditSink]. [NopSink] is the
// default; [CSVSink] writes page_<n>_table<m>.csv files and [XLSXSink] writes
// one workbook with a sheet per table. Sink failures are logged and never fail
// the page.
package tables
