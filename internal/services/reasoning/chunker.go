package reasoning

const (
	// extractionChunkSize is the target chunk length in runes. Documents
	// at or under twice this size are extracted in a single call.
	extractionChunkSize = 30000

	// chunkBoundaryFraction gates question-mark boundaries: a '?' only
	// becomes a split point past this fraction of the target length, so
	// an early question cannot produce a sliver chunk.
	chunkBoundaryFraction = 0.7

	// extractionGroupSize is how many chunks extract in parallel before
	// the adaptive pause.
	extractionGroupSize = 2
)

// splitDocument cuts questionnaire text into extraction chunks. Each cut
// prefers the last question mark inside the target window, falling back
// to a raw cut at the target length when none lands late enough.
func splitDocument(text string) []string {
	runes := []rune(text)
	if len(runes) <= 2*extractionChunkSize {
		return []string{text}
	}

	minBoundary := int(float64(extractionChunkSize) * chunkBoundaryFraction)
	var chunks []string
	for len(runes) > extractionChunkSize {
		cut := extractionChunkSize
		for i := extractionChunkSize - 1; i >= minBoundary; i-- {
			if runes[i] == '?' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
