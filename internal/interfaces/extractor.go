package interfaces

// TextExtractor converts raw document bytes into plain text. The payload
// format (PDF, HTML, plain text) is sniffed from the bytes themselves;
// the extractor is opaque to the pipeline.
type TextExtractor interface {
	// ExtractText returns the plain text content of the payload.
	ExtractText(data []byte) (string, error)
}
