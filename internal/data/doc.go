// Package data provides labelled example sources and the class-balanced
// sampler used to estimate pruning scores.
package data
