// Package weights reads PyTorch parameter tensors from SafeTensors files so
// graph documents can reference weights by state_dict name.
package weights

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/goccy/go-json"

	"github.com/born-ml/torch2ncnn/internal/tensor"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// maxHeaderSize bounds the JSON header (100MB).
const maxHeaderSize = 100 * 1024 * 1024

// DType is a SafeTensors element type.
type DType string

// Supported element types. All are widened or narrowed to float32.
const (
	F16  DType = "F16"
	BF16 DType = "BF16"
	F32  DType = "F32"
	F64  DType = "F64"
)

// Reader errors.
var (
	ErrTensorNotFound   = errors.New("tensor not found")
	ErrUnsupportedDType = errors.New("unsupported dtype")
)

// TensorInfo describes a tensor in the header.
type TensorInfo struct {
	DType       DType    `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end] relative to the data section
}

// Reader reads tensors from a SafeTensors file.
type Reader struct {
	r          io.ReaderAt
	closer     io.Closer
	tensors    map[string]TensorInfo
	metadata   map[string]string
	dataOffset int64
}

// Open opens a SafeTensors file.
func Open(path string) (*Reader, error) {
	//nolint:gosec // G304: path is supplied by the user on purpose
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close() // Best effort close on error
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader parses the header of a SafeTensors stream.
func NewReader(ra io.ReaderAt) (*Reader, error) {
	var sizeBuf [8]byte
	if err := readAt(ra, sizeBuf[:], 0); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	headerSize := binary.LittleEndian.Uint64(sizeBuf[:])
	if headerSize > maxHeaderSize {
		return nil, fmt.Errorf("invalid header size: %d (too large)", headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if err := readAt(ra, headerBytes, 8); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r := &Reader{
		r:          ra,
		tensors:    make(map[string]TensorInfo, len(raw)),
		dataOffset: int64(8 + headerSize), //nolint:gosec // G115: bounded by maxHeaderSize
	}
	for key, value := range raw {
		if key == "__metadata__" {
			if err := json.Unmarshal(value, &r.metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		r.tensors[key] = info
	}
	return r, nil
}

// Close closes the underlying file, if the reader opened one.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Metadata returns the __metadata__ map from the header.
func (r *Reader) Metadata() map[string]string {
	return r.metadata
}

// Names returns all tensor names, sorted.
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info returns the header entry for a tensor.
func (r *Reader) Info(name string) (TensorInfo, error) {
	info, ok := r.tensors[name]
	if !ok {
		return TensorInfo{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return info, nil
}

// Tensor reads and decodes a tensor as float32. It implements
// graph.TensorResolver.
func (r *Reader) Tensor(name string) (*tensor.Blob, error) {
	info, err := r.Info(name)
	if err != nil {
		return nil, err
	}

	size := info.DataOffsets[1] - info.DataOffsets[0]
	if size < 0 || info.DataOffsets[0] < 0 {
		return nil, fmt.Errorf("invalid data offsets for tensor %s: [%d, %d]",
			name, info.DataOffsets[0], info.DataOffsets[1])
	}

	data := make([]byte, size)
	if err := readAt(r.r, data, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}

	values, err := decode(info.DType, data)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	shape := tensor.Shape(info.Shape)
	if len(shape) == 0 {
		shape = tensor.Shape{1}
	}
	blob, err := tensor.New(shape, values)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	return blob, nil
}

// readAt fills p, accepting io.EOF when the read ends exactly at the end.
func readAt(ra io.ReaderAt, p []byte, off int64) error {
	n, err := ra.ReadAt(p, off)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(p)) {
		return err
	}
	return nil
}

func decode(dtype DType, data []byte) ([]float32, error) {
	var width int
	switch dtype {
	case F16, BF16:
		width = 2
	case F32:
		width = 4
	case F64:
		width = 8
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, dtype)
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of %d", len(data), width)
	}

	out := make([]float32, len(data)/width)
	for i := range out {
		b := data[i*width:]
		switch dtype {
		case F16:
			out[i] = float16ToFloat32(binary.LittleEndian.Uint16(b))
		case BF16:
			out[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(b)) << 16)
		case F32:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b))
		case F64:
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		}
	}
	return out, nil
}

// float16ToFloat32 converts IEEE 754 half precision bits to float32.
func float16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h) & 0x3ff

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: normalize the mantissa.
		e := uint32(127 - 15 + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3ff
		return math.Float32frombits(sign | e<<23 | mant<<13)
	case 0x1f:
		return math.Float32frombits(sign | 0xff<<23 | mant<<13)
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | mant<<13)
	}
}
