package xgsynth

import "math"

// AudioSink is the destination of rendered audio. WriteAudio consumes an
// interleaved stereo float32 buffer.
type AudioSink interface {
	WriteAudio(buffer []float32) error
	Close() error
}

// AudioContext is a connection to an audio backend capable of producing
// sinks.
type AudioContext interface {
	Output() AudioSink
	Close() error
}

// StereoBuffer is one channel's worth of block-rate audio, left and right
// held as separate slices so per-channel effect sends stay independent.
type StereoBuffer struct {
	Left  []float32
	Right []float32
}

// Interleave writes left/right sample pairs into dst, which must hold
// 2*len(left) values.
func Interleave(dst, left, right []float32) {
	for i := range left {
		dst[2*i] = left[i]
		dst[2*i+1] = right[i]
	}
}

// FloatBufferToLE appends the float32 buffer to dst as little-endian bytes
// and returns the (possibly reallocated) dst.
func FloatBufferToLE(buffer []float32, dst []byte) []byte {
	for _, v := range buffer {
		bits := math.Float32bits(v)
		dst = append(dst, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return dst
}
