//go:build !cgo || !onnx

package embed

import "fmt"

func newONNXBackend(_ string) (Backend, error) {
	return nil, fmt.Errorf("onnxruntime not compiled in")
}
