package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math/rand"
	"strings"

	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// testFraction of a synthetic dataset is held out for evaluation.
const testFraction = 0.2

type dataset struct {
	origin string
	train  *data.TensorSource
	test   *data.TensorSource
}

// sampleShape returns the per-example input shape of a dataset family.
func sampleShape(name string) tensor.Shape {
	switch {
	case strings.Contains(name, "mnist"):
		return tensor.Shape{1, 28, 28}
	case strings.Contains(name, "imagenet"):
		return tensor.Shape{3, 64, 64}
	default:
		return tensor.Shape{3, 32, 32}
	}
}

// loadDataset reads MNIST IDX files from cfg.DataDir when the dataset is
// MNIST and the files exist; otherwise it generates Gaussian clusters with
// the dataset's input shape.
func loadDataset(cfg *config.Config, opts options, rng *rand.Rand, logger *log.Logger) (*dataset, error) {
	if !opts.synthetic && strings.Contains(cfg.Dataset, "mnist") && cfg.DataDir != "" {
		ds, err := loadMNIST(cfg, opts, rng)
		if err == nil {
			return ds, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		logger.Printf("WARNING: MNIST files not found in %s; using synthetic data", cfg.DataDir)
	}
	return synthetic(cfg, opts, rng)
}

func loadMNIST(cfg *config.Config, opts options, rng *rand.Rand) (*dataset, error) {
	trainX, trainY, err := data.LoadMNIST(cfg.DataDir, true, opts.maxSamples)
	if err != nil {
		return nil, err
	}
	testX, testY, err := data.LoadMNIST(cfg.DataDir, false, opts.maxSamples/5)
	if err != nil {
		return nil, err
	}
	trainSrc, err := data.NewTensorSource(trainX, trainY, cfg.BatchSize, true, rng)
	if err != nil {
		return nil, err
	}
	testSrc, err := data.NewTensorSource(testX, testY, cfg.BatchSize, false, nil)
	if err != nil {
		return nil, err
	}
	return &dataset{origin: "mnist " + cfg.DataDir, train: trainSrc, test: testSrc}, nil
}

func synthetic(cfg *config.Config, opts options, rng *rand.Rand) (*dataset, error) {
	perClass := opts.maxSamples / cfg.Classes
	// Enough examples for every class to fill the score sample.
	perClass = max(perClass, 2*cfg.SamplesPerClass*cfg.NumIters)
	x, y := data.Synthetic(cfg.Classes, perClass, sampleShape(cfg.Dataset), 0.5, rng)

	all := data.Batch{Inputs: x, Labels: y}
	cut := int(float64(all.Len()) * (1 - testFraction))
	if cut <= 0 || cut >= all.Len() {
		return nil, fmt.Errorf("synthetic dataset of %d examples is too small to split", all.Len())
	}
	trainPart, testPart := all.Slice(0, cut), all.Slice(cut, all.Len())

	trainSrc, err := data.NewTensorSource(trainPart.Inputs, trainPart.Labels, cfg.BatchSize, true, rng)
	if err != nil {
		return nil, err
	}
	testSrc, err := data.NewTensorSource(testPart.Inputs, testPart.Labels, cfg.BatchSize, false, nil)
	if err != nil {
		return nil, err
	}
	return &dataset{origin: "synthetic", train: trainSrc, test: testSrc}, nil
}
