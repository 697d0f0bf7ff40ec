// Package ncnn defines the ncnn layer record produced by the converters and
// the writers for ncnn's text .param and binary .bin files.
//
// A record's Params are positional: the writer emits them as "0=p0 1=p1 ..."
// in slice order, so the order and count per layer type are part of the
// format. Weights are written back to back as little-endian float32 in the
// order ncnn's layer loaders read them.
package ncnn
