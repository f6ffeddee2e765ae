package nn

import (
	"fmt"
	"math"

	"github.com/hunkoufanchi777/SynCW/internal/autodiff"
	"github.com/hunkoufanchi777/SynCW/internal/tensor"
)

// CrossEntropy computes the mean softmax cross-entropy of logits
// [batch, classes] against integer labels.
//
// The log-sum-exp is shifted by the per-row maximum (a constant) for
// numerical stability; the result is differentiable to any order.
func CrossEntropy(tp *autodiff.Tape, logits *autodiff.Value, labels []int) *autodiff.Value {
	shape := logits.Shape()
	if len(shape) != 2 || shape[0] != len(labels) {
		panic(fmt.Sprintf("CrossEntropy: logits %v do not match %d labels", shape, len(labels)))
	}
	batch, classes := shape[0], shape[1]

	data := logits.Data().Data()
	rowMax := make([]float64, batch)
	for i := range batch {
		m := math.Inf(-1)
		for _, v := range data[i*classes : (i+1)*classes] {
			m = math.Max(m, v)
		}
		rowMax[i] = m
	}
	shift := tensor.New(tensor.Shape{batch}, rowMax).ExpandAxis(shape, 0)

	shifted := tp.Sub(logits, autodiff.Constant(shift))
	lse := tp.Log(tp.SumToAxis(tp.Exp(shifted), 0))
	logProbs := tp.Sub(shifted, tp.ExpandAxis(lse, shape, 0))

	picked := tp.Mul(logProbs, autodiff.Constant(tensor.OneHot(labels, classes)))
	return tp.Scale(tp.Sum(picked), -1/float64(batch))
}

// Accuracy returns the fraction of rows whose arg-max matches the label.
func Accuracy(logits *tensor.Tensor, labels []int) float64 {
	shape := logits.Shape()
	if len(labels) == 0 {
		return 0
	}
	classes := shape[1]
	data := logits.Data()
	correct := 0
	for i, label := range labels {
		row := data[i*classes : (i+1)*classes]
		best := 0
		for c, v := range row {
			if v > row[best] {
				best = c
			}
		}
		if best == label {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}
