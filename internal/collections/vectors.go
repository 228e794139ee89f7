package collections

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// vectorToString converts a float32 array to libSQL vector string format.
// Non-finite values become 0.
func vectorToString(numbers []float32, dims int) (string, error) {
	if len(numbers) != dims {
		return "", fmt.Errorf("vector must have exactly %d dimensions, got %d", dims, len(numbers))
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, n := range numbers {
		if i > 0 {
			b.WriteString(", ")
		}
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			n = 0
		}
		b.WriteString(strconv.FormatFloat(float64(n), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}

// extractVector decodes an F32_BLOB (little-endian float32s).
func extractVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != dims*4 {
		return nil, fmt.Errorf("invalid embedding size: expected %d bytes for %d-dimensional vector, got %d", dims*4, dims, len(blob))
	}
	vector := make([]float32, dims)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : (i+1)*4]))
	}
	return vector, nil
}
