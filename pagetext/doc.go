// Package pagetext recovers the prose text of a page.
//
// Extraction runs in two stages. The native stage groups the page's text
// fragments into blocks and keeps every block that lies outside the page's
// table regions. Only when that yields no visible text does the fallback
// stage rasterize the page and run OCR over the images. Fallback failures
// are logged and leave the page text empty; they never fail the page.
package pagetext
