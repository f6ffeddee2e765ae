package autodiff

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Inputs returns the input Values for this operation.
	Inputs() []*Value

	// Backward computes gradients for inputs given the output gradient.
	// Gradients are built with Tape ops, so they are recorded when the
	// tape is recording. A nil entry means no gradient flows to that input.
	Backward(t *Tape, outputGrad *Value) []*Value
}
