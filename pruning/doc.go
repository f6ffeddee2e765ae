// Copyright 2025 The SynCW Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pruning computes binary masks that remove a target fraction of a
// network's weights before training.
//
// # Overview
//
// Saliency scores are derived from gradient products on a small
// class-balanced sample:
//   - GraSP: Hessian-gradient product of the gradient norm
//   - SNIP: first-order gradient magnitude
//   - GCS: cross-group gradient products
//   - synCW: gradients weighted by downstream connection strength
//   - SynFlow: data-free synaptic flow, pruned iteratively
//
// Scores are ranked globally; the top fraction is kept.
//
// # Basic Usage
//
//	cfg := pruning.DefaultConfig()
//	if err := cfg.SetExperiment("cifar10/resnet32/90"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg.ApplyAlgorithm("syncw", logger)
//
//	p := pruning.NewPruner(cfg, pruning.WithLogger(logger))
//	res, err := p.Prune(net, src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("kept %.2f%%\n", 100*pruning.KeepRatio(res.Masks))
package pruning
