package data

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// IDX magic numbers.
const (
	idxImagesMagic = 2051
	idxLabelsMagic = 2049
)

// ReadIDXImages reads an image file in IDX format.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255)
//
// Pixels are scaled to [0, 1]; the result has shape [N, 1, rows, cols].
func ReadIDXImages(r io.Reader, maxSamples int) (*tensor.Tensor, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != idxImagesMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", header[0], idxImagesMagic)
	}

	n, rows, cols := int(header[1]), int(header[2]), int(header[3])
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}
	size := rows * cols
	raw := make([]byte, n*size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("failed to read %d images: %w", n, err)
	}

	pixels := make([]float64, len(raw))
	for i, b := range raw {
		pixels[i] = float64(b) / 255.0
	}
	return tensor.New(tensor.Shape{n, 1, rows, cols}, pixels), nil
}

// ReadIDXLabels reads a label file in IDX format.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes
func ReadIDXLabels(r io.Reader, maxSamples int) ([]int, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != idxLabelsMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", header[0], idxLabelsMagic)
	}

	n := int(header[1])
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	labels := make([]int, n)
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

// LoadMNIST loads MNIST from the official IDX files in dataDir.
//
// Expected files in dataDir:
//   - train-images-idx3-ubyte (or t10k-images-idx3-ubyte for test)
//   - train-labels-idx1-ubyte (or t10k-labels-idx1-ubyte for test)
func LoadMNIST(dataDir string, train bool, maxSamples int) (*tensor.Tensor, []int, error) {
	prefix := "t10k"
	if train {
		prefix = "train"
	}

	images, err := readFile(filepath.Join(dataDir, prefix+"-images-idx3-ubyte"), func(r io.Reader) (*tensor.Tensor, error) {
		return ReadIDXImages(r, maxSamples)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load images: %w", err)
	}
	labels, err := readFile(filepath.Join(dataDir, prefix+"-labels-idx1-ubyte"), func(r io.Reader) ([]int, error) {
		return ReadIDXLabels(r, maxSamples)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load labels: %w", err)
	}

	if images.Shape()[0] != len(labels) {
		return nil, nil, fmt.Errorf("image count (%d) != label count (%d)", images.Shape()[0], len(labels))
	}
	return images, labels, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return read(f)
}
