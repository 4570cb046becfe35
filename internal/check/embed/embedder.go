// Package embed turns normalized source code into dense vectors. A real
// ONNX code model is used when the runtime is present (onnx build tag);
// otherwise a deterministic hash embedding keeps the pipeline testable.
package embed

import (
	"context"
	"math"

	appErr "codearena/pkg/errors"
)

// DefaultDimension matches the hidden size of BERT-style code models.
const DefaultDimension = 768

// MaxTokens is the tokenizer truncation length.
const MaxTokens = 512

// Backend runs batched inference over tokenized inputs.
type Backend interface {
	EmbedBatch(ctx context.Context, inputIDs, attentionMask []int64, batchSize, seqLen, dim int) ([][]float32, error)
	Close() error
}

// Embedder tokenizes and embeds code snippets. Output vectors are always
// L2-normalized, so inner products are cosine similarities.
type Embedder struct {
	dimension int
	tokenizer *Tokenizer
	backend   Backend
}

// NewEmbedder builds an embedder. When the model or tokenizer cannot be
// loaded, the embedder silently degrades to deterministic pseudo vectors.
func NewEmbedder(modelPath, tokenizerPath string) *Embedder {
	e := &Embedder{dimension: DefaultDimension}
	if tokenizerPath != "" {
		if tok, err := NewTokenizer(tokenizerPath, MaxTokens); err == nil {
			e.tokenizer = tok
		}
	}
	if backend, err := newONNXBackend(modelPath); err == nil {
		e.backend = backend
	}
	return e
}

// Close releases backend resources.
func (e *Embedder) Close() error {
	if e.backend != nil {
		return e.backend.Close()
	}
	return nil
}

// Dimension returns the vector dimension.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed produces one vector per input text, in order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if ctx.Err() != nil {
		return nil, appErr.Wrap(ctx.Err(), appErr.EmbeddingFailed)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	if e.tokenizer != nil && e.backend != nil {
		return e.embedWithBackend(ctx, texts)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = pseudoEmbedding(text, e.dimension)
	}
	return out, nil
}

func (e *Embedder) embedWithBackend(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := len(texts)
	seqLen := MaxTokens

	inputIDs := make([]int64, batchSize*seqLen)
	attentionMask := make([]int64, batchSize*seqLen)
	for i, text := range texts {
		ids, mask := e.tokenizer.Encode(text)
		copy(inputIDs[i*seqLen:(i+1)*seqLen], ids)
		copy(attentionMask[i*seqLen:(i+1)*seqLen], mask)
	}

	vectors, err := e.backend.EmbedBatch(ctx, inputIDs, attentionMask, batchSize, seqLen, e.dimension)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.EmbeddingFailed)
	}
	for i := range vectors {
		NormalizeL2(vectors[i])
	}
	return vectors, nil
}

// NormalizeL2 scales v to unit length in place. Zero vectors stay zero.
func NormalizeL2(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	norm := float32(math.Sqrt(float64(sum)))
	if norm > 0 {
		for i := range v {
			v[i] /= norm
		}
	}
	return v
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// pseudoEmbedding derives a unit vector from a text hash. Identical texts
// map to identical vectors, which is all the fallback needs to keep
// exact-copy detection and the tests working.
func pseudoEmbedding(text string, dim int) []float32 {
	hash := uint64(1469598103934665603)
	for _, c := range text {
		hash ^= uint64(c)
		hash *= 1099511628211
	}

	v := make([]float32, dim)
	for i := 0; i < dim; i++ {
		hash = hash*6364136223846793005 + 1442695040888963407
		v[i] = float32(hash%2000)/1000.0 - 1.0
	}
	return NormalizeL2(v)
}
