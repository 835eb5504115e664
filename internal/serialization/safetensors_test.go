package serialization

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/born-ml/kernels/internal/tensor"
)

func blobs(t *testing.T) map[string]*tensor.RawTensor {
	t.Helper()
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.CPU)
	require.NoError(t, err)
	half, err := tensor.FromSlice([]float16.Float16{float16.Fromfloat32(0.5)}, tensor.Shape{1}, tensor.CPU)
	require.NoError(t, err)
	mask, err := tensor.FromSlice([]int32{5, -1}, tensor.Shape{1, 1, 1, 2}, tensor.CPU)
	require.NoError(t, err)
	indices, err := tensor.FromSlice([]int64{2, 0, 1}, tensor.Shape{3}, tensor.CPU)
	require.NoError(t, err)
	empty, err := tensor.Zeros(tensor.Shape{0, 4}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	return map[string]*tensor.RawTensor{"X": x, "half": half, "mask": mask, "indices": indices, "empty": empty}
}

func TestWriteRead(t *testing.T) {
	want := blobs(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, want, map[string]string{"producer": "born-kernels"}))

	got, metadata, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, "born-kernels", metadata["producer"])
	require.Len(t, got, len(want))
	for name, w := range want {
		g := got[name]
		require.NotNil(t, g, name)
		assert.Equal(t, w.DType(), g.DType(), name)
		assert.True(t, w.Shape().Equal(g.Shape()), name)
		assert.Equal(t, w.Data(), g.Data(), name)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.safetensors")
	require.NoError(t, WriteFile(path, blobs(t), nil))

	got, metadata, err := ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, metadata)
	assert.Equal(t, []int64{2, 0, 1}, got["indices"].AsInt64())
}

// encode builds a raw SafeTensors stream from a header and a data section.
func encode(header string, data []byte) *bytes.Reader {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint64(len(header)))
	buf.WriteString(header)
	buf.Write(data)
	return bytes.NewReader(buf.Bytes())
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		header string
		data   int
		want   error
	}{
		{"out of bounds", `{"a":{"dtype":"F32","shape":[4],"data_offsets":[0,16]}}`, 8, ErrOutOfBounds},
		{"overlap", `{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,8]},"b":{"dtype":"F32","shape":[2],"data_offsets":[4,12]}}`, 12, ErrOffsetOverlap},
		{"negative", `{"a":{"dtype":"F32","shape":[1],"data_offsets":[-4,0]}}`, 4, ErrNegativeOffset},
		{"path name", `{"../a":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`, 4, ErrInvalidTensorName},
		{"dtype", `{"a":{"dtype":"BF16","shape":[2],"data_offsets":[0,4]}}`, 4, ErrUnsupportedDType},
		{"shape", `{"a":{"dtype":"F32","shape":[3],"data_offsets":[0,8]}}`, 8, ErrOutOfBounds},
		{"overflowing shape", `{"a":{"dtype":"F32","shape":[4611686018427387904,4],"data_offsets":[0,0]}}`, 0, ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Read(encode(tt.header, make([]byte, tt.data)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRead_HeaderTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(MaxHeaderSize+1)))
	_, _, err := Read(&buf)
	assert.True(t, errors.Is(err, ErrHeaderTooLarge))
}

func TestWrite_InvalidName(t *testing.T) {
	x, err := tensor.Zeros(tensor.Shape{1}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	err = Write(&bytes.Buffer{}, map[string]*tensor.RawTensor{"a/b": x}, nil)
	assert.True(t, errors.Is(err, ErrInvalidTensorName))
}
