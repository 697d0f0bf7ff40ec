// Package convert maps PyTorch autograd layer descriptors to ncnn layer
// records.
//
// The package provides a registry of converters keyed by the autograd
// function name ("ConvNd", "Addmm", "BatchNorm", ...). Each converter checks
// that it received the descriptor type it expects, validates shapes, and
// returns one ncnn.Layer, or two for BatchNorm (BatchNorm followed by Scale).
// Converters are pure: they never modify the descriptor or its blobs and may
// be called concurrently.
package convert
