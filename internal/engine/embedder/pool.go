package embedder

// meanPool averages each sequence's hidden states over its unmasked
// positions. hidden is flat [batchSize * seqLen * dim]; the result has one
// dim-wide row per sequence. A fully masked sequence pools to zeros.
func meanPool(hidden []float32, batch tokenized, dim int) [][]float32 {
	seqLen := int(batch.seqLen)
	out := make([][]float32, batch.batchSize)
	for b := range out {
		row := make([]float32, dim)
		var n int
		for s := 0; s < seqLen; s++ {
			if batch.attentionMask[b*seqLen+s] == 0 {
				continue
			}
			n++
			tok := hidden[(b*seqLen+s)*dim:][:dim]
			for d, v := range tok {
				row[d] += v
			}
		}
		if n > 0 {
			inv := 1 / float32(n)
			for d := range row {
				row[d] *= inv
			}
		}
		out[b] = row
	}
	return out
}
