package xgsynth

// EffectBus post-processes the 16 per-channel stereo buffers of one rendered
// block. The returned slice must preserve the shape of the input (16
// channels, n frames each); implementations may process in place and return
// the input. A failing bus makes the engine fall back to a pass-through mix.
type EffectBus interface {
	ProcessAudio(channels []StereoBuffer, n int) ([]StereoBuffer, error)
}

// PassThroughBus is the effect bus used when none is configured: it returns
// the channel buffers untouched.
type PassThroughBus struct{}

func (PassThroughBus) ProcessAudio(channels []StereoBuffer, n int) ([]StereoBuffer, error) {
	return channels, nil
}
