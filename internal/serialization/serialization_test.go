package serialization

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

func TestWriteMasksRoundTrip(t *testing.T) {
	names := []string{"layer1.0.conv1", "fc"}
	masks := []*tensor.Tensor{
		tensor.New(tensor.Shape{2, 3}, []float64{1, 0, 1, 1, 0, 0}),
		tensor.New(tensor.Shape{4}, []float64{0, 0, 1, 0}),
	}
	meta := map[string]string{"network": "resnet8", "keep_ratio": "0.4"}

	var buf bytes.Buffer
	require.NoError(t, WriteMasks(&buf, names, masks, meta))

	file, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, meta, file.Metadata())
	assert.Equal(t, []string{"fc", "layer1.0.conv1"}, file.TensorNames())
	assert.Equal(t, DTypeU8, file.Header.Tensors["fc"].DType)

	got, err := file.Masks(names)
	require.NoError(t, err)
	for i := range masks {
		assert.True(t, masks[i].Equal(got[i]), names[i])
	}
}

func TestWriteMasksRejectsNonBinary(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMasks(&buf, []string{"w"}, []*tensor.Tensor{tensor.New(tensor.Shape{2}, []float64{1, 0.5})}, nil)
	require.ErrorIs(t, err, ErrNotBinary)
}

func TestWriteMasksLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMasks(&buf, []string{"a", "b"}, []*tensor.Tensor{tensor.Ones(tensor.Shape{1})}, nil)
	require.Error(t, err)
}

func TestStateDictRoundTrip(t *testing.T) {
	dict := map[string]*tensor.Tensor{
		"conv1": tensor.New(tensor.Shape{2, 2}, []float64{0.125, -3.5, 1e-12, 42}),
		"fc":    tensor.New(tensor.Shape{3}, []float64{-1, 0, 1}),
	}
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteStateDict(dict, nil))

	file, err := Read(&buf)
	require.NoError(t, err)
	assert.Nil(t, file.Metadata())
	got, err := file.StateDict()
	require.NoError(t, err)
	require.Len(t, got, 2)
	for name, want := range dict {
		assert.True(t, want.Equal(got[name]), name)
		assert.Equal(t, want.Shape(), got[name].Shape())
	}
}

func TestF32Precision(t *testing.T) {
	var buf bytes.Buffer
	entries := []Entry{{Name: "s", Tensor: tensor.New(tensor.Shape{2}, []float64{0.1, 2}), DType: DTypeF32}}
	require.NoError(t, NewWriter(&buf).WriteEntries(entries, nil))
	file, err := Read(&buf)
	require.NoError(t, err)
	got, err := file.Tensor("s")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got.Data()[0], 1e-7)
	assert.Equal(t, 2.0, got.Data()[1])
}

func TestWriteRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "../x", "a/b", MetadataKey} {
		var buf bytes.Buffer
		err := NewWriter(&buf).WriteEntries([]Entry{{Name: name, Tensor: tensor.Ones(tensor.Shape{1}), DType: DTypeF64}}, nil)
		assert.ErrorIs(t, err, ErrInvalidTensorName, name)
	}

	var buf bytes.Buffer
	dup := []Entry{
		{Name: "a", Tensor: tensor.Ones(tensor.Shape{1}), DType: DTypeF64},
		{Name: "a", Tensor: tensor.Ones(tensor.Shape{1}), DType: DTypeF64},
	}
	assert.Error(t, NewWriter(&buf).WriteEntries(dup, nil))
}

func TestMissingTensor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMasks(&buf, []string{"a"}, []*tensor.Tensor{tensor.Ones(tensor.Shape{2})}, nil))
	file, err := Read(&buf)
	require.NoError(t, err)
	_, err = file.Masks([]string{"a", "b"})
	assert.ErrorIs(t, err, ErrMissingTensor)
}

func TestMasksRejectsNonBinaryPayload(t *testing.T) {
	var buf bytes.Buffer
	entries := []Entry{{Name: "w", Tensor: tensor.New(tensor.Shape{2}, []float64{1, 3}), DType: DTypeF64}}
	require.NoError(t, NewWriter(&buf).WriteEntries(entries, nil))
	file, err := Read(&buf)
	require.NoError(t, err)
	_, err = file.Masks([]string{"w"})
	assert.ErrorIs(t, err, ErrNotBinary)
}

func TestReadTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMasks(&buf, []string{"a"}, []*tensor.Tensor{tensor.Ones(tensor.Shape{8})}, nil))
	b := buf.Bytes()

	_, err := ReadBytes(b[:len(b)-3])
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = ReadBytes(b[:4])
	assert.Error(t, err)
}

func TestReadHeaderTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(MaxHeaderSize+1)))
	_, err := Read(&buf)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "masks.safetensors")
	entries := []Entry{{Name: "fc", Tensor: tensor.New(tensor.Shape{3}, []float64{1, 0, 1}), DType: DTypeU8}}
	require.NoError(t, WriteFile(path, entries, map[string]string{"run": "x"}))

	file, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", file.Metadata()["run"])

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantErr  error
	}{
		{
			name:     "adjacent",
			tensors:  []TensorMeta{{Name: "a", Offset: 0, Size: 100}, {Name: "b", Offset: 100, Size: 100}},
			dataSize: 200,
		},
		{
			name:     "overlap",
			tensors:  []TensorMeta{{Name: "a", Offset: 0, Size: 100}, {Name: "b", Offset: 99, Size: 100}},
			dataSize: 200,
			wantErr:  ErrOffsetOverlap,
		},
		{
			name:     "out of bounds",
			tensors:  []TensorMeta{{Name: "a", Offset: 50, Size: 100}},
			dataSize: 100,
			wantErr:  ErrOutOfBounds,
		},
		{
			name:     "negative",
			tensors:  []TensorMeta{{Name: "a", Offset: -1, Size: 10}},
			dataSize: 100,
			wantErr:  ErrNegativeOffset,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestChecksum(t *testing.T) {
	data := []byte("masks")
	assert.NoError(t, ValidateChecksumHex(data, ChecksumHex(data)))
	assert.ErrorIs(t, ValidateChecksumHex([]byte("other"), ChecksumHex(data)), ErrChecksumMismatch)
	assert.Len(t, ChecksumHex(data), 64)

	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	sum, err := FileChecksum(path)
	require.NoError(t, err)
	assert.Equal(t, ChecksumHex(data), sum)

	_, err = FileChecksum(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
