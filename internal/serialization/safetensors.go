package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"math/bits"
	"os"
	"slices"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/kernels/internal/tensor"
)

const metadataKey = "__metadata__"

// tensorHeader represents a tensor in the SafeTensors header.
type tensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

var dtypeNames = map[tensor.DataType]string{
	tensor.Float32: "F32",
	tensor.Float16: "F16",
	tensor.Int32:   "I32",
	tensor.Int64:   "I64",
}

func parseDType(s string) (tensor.DataType, error) {
	for dt, name := range dtypeNames {
		if name == s {
			return dt, nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedDType, "%q", s)
}

// Write writes blobs and optional metadata to w in SafeTensors format.
// Blobs are written in alphabetical order by name.
func Write(w io.Writer, blobs map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(blobs))
	for name := range blobs {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	slices.Sort(names)

	header := make(map[string]any, len(blobs)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}
	var offset int64
	for _, name := range names {
		raw := blobs[name]
		dtype, ok := dtypeNames[raw.DType()]
		if !ok {
			return errors.Wrapf(ErrUnsupportedDType, "blob %q is %s", name, raw.DType())
		}
		shape := make([]int64, raw.Rank())
		for i, dim := range raw.Shape() {
			shape[i] = int64(dim)
		}
		size := int64(raw.ByteSize())
		header[name] = tensorHeader{DType: dtype, Shape: shape, DataOffsets: [2]int64{offset, offset + size}}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshal header")
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "write header size")
	}
	if _, err := bw.Write(headerJSON); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, name := range names {
		if _, err := bw.Write(blobs[name].Data()); err != nil {
			return errors.Wrapf(err, "write blob %s", name)
		}
	}
	return errors.Wrap(bw.Flush(), "flush")
}

// WriteFile writes blobs to a SafeTensors file at path.
func WriteFile(path string, blobs map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for saving blobs
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()
	if err := Write(file, blobs, metadata); err != nil {
		return errors.WithMessage(err, path)
	}
	klog.V(1).Infof("serialization: wrote %d blobs to %s", len(blobs), path)
	return nil
}

// Read reads every blob of a SafeTensors stream into host tensors.
func Read(r io.Reader) (map[string]*tensor.RawTensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, errors.Wrap(err, "read header size")
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}
	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, errors.Wrap(err, "read header")
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &rawMap); err != nil {
		return nil, nil, errors.Wrap(err, "parse header JSON")
	}
	var metadata map[string]string
	if m, ok := rawMap[metadataKey]; ok {
		if err := json.Unmarshal(m, &metadata); err != nil {
			return nil, nil, errors.Wrap(err, "parse metadata")
		}
		delete(rawMap, metadataKey)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read data")
	}

	headers := make(map[string]tensorHeader, len(rawMap))
	ranges := make([]tensorRange, 0, len(rawMap))
	for name, value := range rawMap {
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, err
		}
		var h tensorHeader
		if err := json.Unmarshal(value, &h); err != nil {
			return nil, nil, errors.Wrapf(err, "parse tensor %s", name)
		}
		headers[name] = h
		ranges = append(ranges, tensorRange{Name: name, Start: h.DataOffsets[0], End: h.DataOffsets[1]})
	}
	if err := validateOffsets(ranges, int64(len(data))); err != nil {
		return nil, nil, err
	}

	blobs := make(map[string]*tensor.RawTensor, len(headers))
	for name, h := range headers {
		raw, err := decode(name, h, data)
		if err != nil {
			return nil, nil, err
		}
		blobs[name] = raw
	}
	return blobs, metadata, nil
}

func decode(name string, h tensorHeader, data []byte) (*tensor.RawTensor, error) {
	dtype, err := parseDType(h.DType)
	if err != nil {
		return nil, errors.WithMessagef(err, "tensor %s", name)
	}
	shape := make(tensor.Shape, len(h.Shape))
	for i, dim := range h.Shape {
		if dim < 0 {
			return nil, &ValidationError{Err: ErrNegativeOffset, Tensor: name, Details: "negative dimension"}
		}
		shape[i] = int(dim)
	}
	size, ok := byteSize(h.Shape, dtype.Size())
	if !ok || size != h.DataOffsets[1]-h.DataOffsets[0] {
		return nil, &ValidationError{
			Err:     ErrOutOfBounds,
			Tensor:  name,
			Details: "shape " + shape.String() + " of " + h.DType + " does not match its data range",
		}
	}
	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, errors.WithMessagef(err, "tensor %s", name)
	}
	copy(raw.Data(), data[h.DataOffsets[0]:h.DataOffsets[1]])
	return raw, nil
}

// byteSize returns the payload size of a tensor with the given (non-negative)
// dims. ok is false when the size does not fit in an int.
func byteSize(dims []int64, elemSize int) (size int64, ok bool) {
	if slices.Contains(dims, 0) {
		return 0, true
	}
	n := uint64(elemSize) //nolint:gosec // G115: element sizes are small and positive
	for _, dim := range dims {
		hi, lo := bits.Mul64(n, uint64(dim))
		if hi != 0 || lo > math.MaxInt {
			return 0, false
		}
		n = lo
	}
	return int64(n), true //nolint:gosec // G115: n <= math.MaxInt
}

// ReadFile reads every blob of a SafeTensors file.
func ReadFile(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for loading blobs
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open file")
	}
	defer func() {
		_ = file.Close() // Best effort close
	}()
	blobs, metadata, err := Read(bufio.NewReader(file))
	if err != nil {
		return nil, nil, errors.WithMessage(err, path)
	}
	klog.V(1).Infof("serialization: read %d blobs from %s", len(blobs), path)
	return blobs, metadata, nil
}
