//go:build cgo && onnx

package embed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// onnxBackend runs a BERT-style ONNX model. Sessions are not reentrant, so
// inference is serialized.
type onnxBackend struct {
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
}

var onnxInitOnce sync.Once
var onnxInitErr error

func newONNXBackend(modelPath string) (Backend, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("no model path configured")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	onnxInitOnce.Do(func() {
		if !findRuntimeLibrary() {
			onnxInitErr = fmt.Errorf("onnxruntime library not found")
			return
		}
		onnxInitErr = ort.InitializeEnvironment()
	})
	if onnxInitErr != nil {
		return nil, onnxInitErr
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	defer func() { _ = options.Destroy() }()

	threads := runtime.NumCPU()
	if threads > 4 {
		threads = 4
	}
	if err := options.SetIntraOpNumThreads(threads); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &onnxBackend{session: session}, nil
}

// EmbedBatch runs inference and mean-pools the last hidden state over the
// attended positions.
func (b *onnxBackend) EmbedBatch(ctx context.Context, inputIDs, attentionMask []int64, batchSize, seqLen, dim int) ([][]float32, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	shape := ort.Shape{int64(batchSize), int64(seqLen)}
	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, err
	}
	defer func() { _ = idsTensor.Destroy() }()

	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, err
	}
	defer func() { _ = maskTensor.Destroy() }()

	hidden := make([]float32, batchSize*seqLen*dim)
	outTensor, err := ort.NewTensor(ort.Shape{int64(batchSize), int64(seqLen), int64(dim)}, hidden)
	if err != nil {
		return nil, err
	}
	defer func() { _ = outTensor.Destroy() }()

	if err := b.session.Run(
		[]ort.Value{idsTensor, maskTensor},
		[]ort.Value{outTensor},
	); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := make([][]float32, batchSize)
	for i := 0; i < batchSize; i++ {
		vec := make([]float32, dim)
		var count float32
		for j := 0; j < seqLen; j++ {
			if attentionMask[i*seqLen+j] == 0 {
				continue
			}
			base := (i*seqLen + j) * dim
			for k := 0; k < dim; k++ {
				vec[k] += hidden[base+k]
			}
			count++
		}
		if count > 0 {
			for k := range vec {
				vec[k] /= count
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (b *onnxBackend) Close() error {
	if b.session != nil {
		_ = b.session.Destroy()
		b.session = nil
	}
	return nil
}

func findRuntimeLibrary() bool {
	name := "libonnxruntime.so"
	switch runtime.GOOS {
	case "windows":
		name = "onnxruntime.dll"
	case "darwin":
		name = "libonnxruntime.dylib"
	}

	paths := []string{"/usr/lib", "/usr/lib/x86_64-linux-gnu", "/usr/local/lib", "/opt/onnxruntime/lib"}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd, filepath.Join(cwd, "lib"))
	}
	if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
		paths = append(paths, filepath.SplitList(ldPath)...)
	}

	for _, dir := range paths {
		lib := filepath.Join(dir, name)
		if _, err := os.Stat(lib); err == nil {
			ort.SetSharedLibraryPath(lib)
			return true
		}
	}
	return false
}
