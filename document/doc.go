// Package document opens certificate PDFs supplied as bytes.
//
// The bytes are spooled once to a private temp file. Each call to OpenPage
// opens its own reader over that file, so pages can be processed
// concurrently without sharing parser state:
//
//	doc, err := document.Open(data)
//	if err != nil {
//		return err
//	}
//	defer doc.Close()
//
//	for i := 0; i < doc.PageCount(); i++ {
//		page, err := doc.OpenPage(i)
//		...
//		page.Close()
//	}
package document
