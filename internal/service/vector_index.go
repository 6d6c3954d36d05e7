package service

import (
	"math"
	"sort"
	"sync"
)

// Chunk is one embedded piece of an FAQ document.
type Chunk struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

type SearchHit struct {
	Chunk
	Score float64 `json:"score"`
}

// VectorIndex is a brute-force cosine similarity index. The FAQ corpus is
// a handful of markdown files, so a linear scan is enough.
type VectorIndex struct {
	mu      sync.RWMutex
	chunks  []Chunk
	vectors [][]float32
	norms   []float64
}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{}
}

func (ix *VectorIndex) Add(c Chunk, vec []float32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = append(ix.chunks, c)
	ix.vectors = append(ix.vectors, vec)
	ix.norms = append(ix.norms, norm(vec))
}

func (ix *VectorIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Search returns the k most similar chunks, best first.
func (ix *VectorIndex) Search(query []float32, k int) []SearchHit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	qn := norm(query)
	if qn == 0 || k <= 0 {
		return nil
	}
	hits := make([]SearchHit, 0, len(ix.chunks))
	for i, vec := range ix.vectors {
		if ix.norms[i] == 0 || len(vec) != len(query) {
			continue
		}
		var dot float64
		for j := range vec {
			dot += float64(vec[j]) * float64(query[j])
		}
		hits = append(hits, SearchHit{Chunk: ix.chunks[i], Score: dot / (ix.norms[i] * qn)})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// ChunkText splits text into windows of size runes that overlap by
// overlap runes.
func ChunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	step := size - overlap

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
