// Package train fine-tunes a pruned network while keeping its masks fixed.
package train

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/config"
	"github.com/hunkoufanchi777/SynCW/internal/data"
	"github.com/hunkoufanchi777/SynCW/internal/nn"
	"github.com/hunkoufanchi777/SynCW/internal/optim"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// ErrEmptySource is returned when a pass over a source yields no examples.
var ErrEmptySource = errors.New("train: source yielded no examples")

// Options configures a Trainer.
type Options struct {
	Epochs      int
	OptimMode   string // "SGD" or "Adam"
	LR          float64
	Momentum    float64
	WeightDecay float64
	LRMode      string // "cosine", "step" or "preset"
	StepSize    int
}

// OptionsFromConfig copies the training fields of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Epochs:      cfg.Epochs,
		OptimMode:   cfg.OptimMode,
		LR:          cfg.LearningRate,
		Momentum:    cfg.Momentum,
		WeightDecay: cfg.WeightDecay,
		LRMode:      cfg.LRMode,
		StepSize:    cfg.StepSize,
	}
}

// EpochStats holds the metrics of one epoch. Accuracies are fractions.
type EpochStats struct {
	Epoch     int
	LR        float64
	TrainLoss float64
	TrainAcc  float64
	TestLoss  float64
	TestAcc   float64
}

// Summary is the outcome of Fit.
type Summary struct {
	Epochs    []EpochStats
	BestAcc   float64
	BestEpoch int
}

// Trainer runs masked training epochs over a network.
type Trainer struct {
	net    nn.Network
	opt    optim.Optimizer
	sched  optim.Scheduler
	opts   Options
	logger *log.Logger
}

// New builds a trainer. With non-nil masks the pruned weights are zeroed
// and kept at zero for the whole run.
func New(net nn.Network, masks []*tensor.Tensor, opts Options, logger *log.Logger) (*Trainer, error) {
	if opts.Epochs < 0 {
		return nil, fmt.Errorf("train: negative epoch count %d", opts.Epochs)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	opt, err := optim.New(opts.OptimMode, net.Parameters(), opts.LR, opts.Momentum, opts.WeightDecay)
	if err != nil {
		return nil, err
	}
	if masks != nil {
		if opt, err = optim.NewMasked(opt, net, masks); err != nil {
			return nil, err
		}
	}
	sched, err := optim.NewScheduler(opts.LRMode, opts.LR, opts.Epochs, opts.StepSize)
	if err != nil {
		return nil, err
	}
	return &Trainer{net: net, opt: opt, sched: sched, opts: opts, logger: logger}, nil
}

// TrainEpoch runs one pass over src, stepping after every batch. It returns
// the mean batch loss and the accuracy.
func (t *Trainer) TrainEpoch(src data.Source) (loss, acc float64, err error) {
	var totalLoss float64
	var batches, correct, total int
	it := src.Iter()
	for {
		batch, ok := it.Next()
		if !ok {
			break
		}
		tp := autodiff.NewTape()
		logits := t.net.Forward(nn.NewPass(tp), autodiff.Constant(batch.Inputs))
		l := nn.CrossEntropy(tp, logits, batch.Labels)
		grads, err := optim.ComputeGradients(tp, l, t.net.Parameters())
		if err != nil {
			return 0, 0, err
		}
		t.opt.Step(grads)

		totalLoss += l.Item()
		batches++
		correct += int(nn.Accuracy(logits.Data(), batch.Labels)*float64(batch.Len()) + 0.5)
		total += batch.Len()
	}
	if total == 0 {
		return 0, 0, ErrEmptySource
	}
	return totalLoss / float64(batches), float64(correct) / float64(total), nil
}

// Evaluate returns the mean batch loss and the accuracy of net on src
// without recording gradients.
func Evaluate(net nn.Network, src data.Source) (loss, acc float64, err error) {
	var totalLoss float64
	var batches, correct, total int
	tp := autodiff.NewTape()
	tp.StopRecording()
	it := src.Iter()
	for {
		batch, ok := it.Next()
		if !ok {
			break
		}
		logits := net.Forward(nn.NewPass(tp), autodiff.Constant(batch.Inputs))
		totalLoss += nn.CrossEntropy(tp, logits, batch.Labels).Item()
		batches++
		correct += int(nn.Accuracy(logits.Data(), batch.Labels)*float64(batch.Len()) + 0.5)
		total += batch.Len()
	}
	if total == 0 {
		return 0, 0, ErrEmptySource
	}
	return totalLoss / float64(batches), float64(correct) / float64(total), nil
}

// Fit trains for Options.Epochs epochs, evaluating on test after each one.
// The learning rate of epoch e is taken from the schedule before the epoch
// starts. Cancelling ctx stops between epochs.
func (t *Trainer) Fit(ctx context.Context, trainSrc, testSrc data.Source) (*Summary, error) {
	summary := &Summary{BestEpoch: -1}
	for epoch := 0; epoch < t.opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		lr := t.sched.LR(epoch)
		t.opt.SetLR(lr)

		trainLoss, trainAcc, err := t.TrainEpoch(trainSrc)
		if err != nil {
			return summary, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		testLoss, testAcc, err := Evaluate(t.net, testSrc)
		if err != nil {
			return summary, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		stats := EpochStats{Epoch: epoch, LR: lr, TrainLoss: trainLoss, TrainAcc: trainAcc, TestLoss: testLoss, TestAcc: testAcc}
		summary.Epochs = append(summary.Epochs, stats)
		if summary.BestEpoch < 0 || testAcc > summary.BestAcc {
			summary.BestAcc, summary.BestEpoch = testAcc, epoch
		}
		t.logger.Printf("Epoch %d/%d [LR=%.5f] Loss=%.4f Acc=%.2f%% | Test Loss=%.4f Acc=%.2f%%",
			epoch+1, t.opts.Epochs, lr, trainLoss, trainAcc*100, testLoss, testAcc*100)
	}
	if summary.BestEpoch >= 0 {
		t.logger.Printf("best acc: %.4f, epoch: %d", summary.BestAcc*100, summary.BestEpoch)
	}
	return summary, nil
}
