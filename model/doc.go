// Package model defines the data structures shared by every stage of the
// certificate analysis pipeline.
//
// # Geometry
//
// [Rect] is an axis-aligned rectangle given by its minimum and maximum
// corners. Intersection is inclusive: rectangles that only touch along an
// edge overlap.
//
//	table := model.NewRect(50, 100, 300, 200)
//	block := model.NewRect(300, 150, 400, 180)
//	table.Intersects(block) // true, shared edge at x=300
//
// [RectFromBBox] converts the origin-plus-extent boxes produced by the tabula
// reader.
//
// # Pages and Tables
//
// A [Page] holds the text blocks, the accepted [Table] regions and the final
// prose text of one page. [Page.Format] renders the page section of a report
// and [Document.Report] joins sections with [PageDelimiter]:
//
//	Page 1:
//	<text>
//	+--------+--------+
//	| Crop   |   Area |
//	+========+========+
//	| Rice   |    2.5 |
//	+--------+--------+
//	========================================
//
// Pages without tables carry [NoTablesMarker] instead of rendered grids.
package model
