// Package xgsynth contains the shared types of a software wavetable
// synthesizer in the style of hardware multitimbral tone generators: the
// parameter model handed out by program banks, the collaborator interfaces
// (wavetable provider, effect bus, audio output) and audio buffer helpers.
//
// The synthesis core itself lives in the synth package; reference
// implementations of the collaborators live in the wavetable, midi and oto
// packages.
package xgsynth

// NumChannels is the number of MIDI channels a synthesis engine renders.
const NumChannels = 16

// DrumChannel is the MIDI channel that defaults to drum mode (0-based).
const DrumChannel = 9

// DrumBank is the bank number that forces a channel into drum mode.
const DrumBank = 128
