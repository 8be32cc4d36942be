// Package oto outputs rendered audio through the oto/v3 backend.
package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/xgsynth/xgsynth"
)

type Context struct {
	ctx        *oto.Context
	sampleRate int
}

const bufferDuration = 50 * time.Millisecond

// NewContext initializes the audio backend for float32 stereo output and
// waits until it is ready.
func NewContext(sampleRate int) (*Context, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, sampleRate: sampleRate}, nil
}

func (c *Context) Close() error {
	// oto/v3 contexts cannot be closed; they die with the process
	return nil
}

// Output starts a player pulling from an internal pipe and returns the sink
// end. WriteAudio blocks when the backend's buffer is full, which paces the
// render loop to real time.
func (c *Context) Output() xgsynth.AudioSink {
	pr, pw := io.Pipe()
	player := c.ctx.NewPlayer(pr)
	player.Play()
	return &Output{pw: pw, player: player}
}

type Output struct {
	pw        *io.PipeWriter
	player    *oto.Player
	tmpBuffer []byte
}

// WriteAudio converts the interleaved float32 buffer to little-endian bytes
// and hands it to the player.
func (o *Output) WriteAudio(floatBuffer []float32) error {
	// reuse the old tmpBuffer capacity by truncating it to zero length
	o.tmpBuffer = xgsynth.FloatBufferToLE(floatBuffer, o.tmpBuffer[:0])
	if _, err := o.pw.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

// Close drains what the player has buffered and disposes of it.
func (o *Output) Close() error {
	o.pw.Close()
	for o.player.IsPlaying() && o.player.BufferedSize() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
