package nn

import "github.com/hunkoufanchi777/SynCW/internal/autodiff"

// Recorder captures the outputs of prunable layers during a forward pass.
//
// It is an explicit buffer owned by the caller and attached to a Pass.
// Outputs are appended in traversal order, so Outputs()[j] belongs to
// Layers()[j]. The buffer must be cleared before each fresh forward pass;
// a Recorder must not be shared between concurrent passes.
type Recorder struct {
	outputs []*autodiff.Value
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends a layer output.
func (r *Recorder) Record(v *autodiff.Value) {
	r.outputs = append(r.outputs, v)
}

// Outputs returns the captured outputs in traversal order.
func (r *Recorder) Outputs() []*autodiff.Value {
	return r.outputs
}

// Len returns the number of captured outputs.
func (r *Recorder) Len() int {
	return len(r.outputs)
}

// Clear empties the buffer.
func (r *Recorder) Clear() {
	clear(r.outputs)
	r.outputs = r.outputs[:0]
}

// Acquire clears the buffer for a new pass and returns a release func that
// clears it again once the captures are no longer needed.
//
//	release := rec.Acquire()
//	defer release()
func (r *Recorder) Acquire() func() {
	r.Clear()
	return r.Clear
}
