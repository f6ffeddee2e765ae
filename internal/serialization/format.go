package serialization

import (
	"encoding/json"
	"fmt"
)

// MetadataKey is the reserved header entry holding string metadata.
const MetadataKey = "__metadata__"

// DType names a SafeTensors element type.
type DType string

// Supported dtypes.
const (
	DTypeF64 DType = "F64"
	DTypeF32 DType = "F32"
	DTypeU8  DType = "U8"
)

// Size returns the width of one element in bytes.
func (d DType) Size() (int, error) {
	switch d {
	case DTypeF64:
		return 8, nil
	case DTypeF32:
		return 4, nil
	case DTypeU8:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDType, string(d))
	}
}

// TensorHeader represents a tensor in the SafeTensors header.
type TensorHeader struct {
	DType       DType    `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end) within the data section
}

// TensorMeta is a named header entry, used during validation.
type TensorMeta struct {
	Name   string
	Offset int64
	Size   int64
}

// Header is the parsed JSON header.
type Header struct {
	Metadata map[string]string
	Tensors  map[string]TensorHeader
}

// MarshalJSON flattens metadata and tensors into one JSON object.
func (h Header) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(h.Tensors)+1)
	if len(h.Metadata) > 0 {
		flat[MetadataKey] = h.Metadata
	}
	for name, t := range h.Tensors {
		flat[name] = t
	}
	return json.Marshal(flat)
}

// UnmarshalJSON implements custom JSON unmarshaling for Header.
func (h *Header) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap[MetadataKey]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]TensorHeader, len(rawMap))
	for key, value := range rawMap {
		if key == MetadataKey {
			continue
		}
		var info TensorHeader
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}
	return nil
}

// metas lists the tensor entries for offset validation.
func (h *Header) metas() []TensorMeta {
	out := make([]TensorMeta, 0, len(h.Tensors))
	for name, t := range h.Tensors {
		out = append(out, TensorMeta{
			Name:   name,
			Offset: t.DataOffsets[0],
			Size:   t.DataOffsets[1] - t.DataOffsets[0],
		})
	}
	return out
}
