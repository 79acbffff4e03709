package util

// SplitChunks slices data into sequential chunks of at most lim bytes,
// preserving order. The final chunk carries the remainder. Chunks alias the
// input buffer; callers must not mutate data until the chunks are consumed.
func SplitChunks(data []byte, lim int) [][]byte {
	var chunk []byte
	chunks := make([][]byte, 0, len(data)/lim+1)
	for len(data) >= lim {
		chunk, data = data[:lim], data[lim:]
		chunks = append(chunks, chunk)
	}
	if len(data) > 0 {
		chunks = append(chunks, data)
	}
	return chunks
}
