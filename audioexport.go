package xgsynth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Wav encodes an interleaved stereo float32 buffer as a .wav file, either as
// IEEE float or 16-bit signed PCM.
func Wav(buffer []float32, sampleRate int, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	writeWavHeader(buf, len(buffer), sampleRate, pcm16)
	if err := writeSamples(buf, buffer, pcm16); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Raw encodes an interleaved stereo float32 buffer as headerless sample data.
func Raw(buffer []float32, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeSamples(buf, buffer, pcm16); err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSamples(buf *bytes.Buffer, data []float32, pcm16 bool) error {
	if !pcm16 {
		if err := binary.Write(buf, binary.LittleEndian, data); err != nil {
			return fmt.Errorf("could not write float samples: %w", err)
		}
		return nil
	}
	pcm := make([]int16, len(data))
	for i, v := range data {
		s := int(v * math.MaxInt16)
		if s > math.MaxInt16 {
			s = math.MaxInt16
		} else if s < math.MinInt16 {
			s = math.MinInt16
		}
		pcm[i] = int16(s)
	}
	if err := binary.Write(buf, binary.LittleEndian, pcm); err != nil {
		return fmt.Errorf("could not write pcm samples: %w", err)
	}
	return nil
}

// writeWavHeader emits the RIFF chunks that precede the sample data.
// bufferLength counts individual float32 samples, not frames; the buffer is
// stereo, so a frame is two of them. Float output carries wave format 3 with
// the extended fmt chunk plus a fact chunk, PCM output wave format 1 with
// the plain 16-byte fmt chunk.
func writeWavHeader(buf *bytes.Buffer, bufferLength, sampleRate int, pcm16 bool) {
	const numChannels = 2
	bytesPerSample, format := 4, 3 // IEEE float
	if pcm16 {
		bytesPerSample, format = 2, 1
	}
	dataSize := bytesPerSample * bufferLength
	riffSize := 4 + 8 + 16 + 8 + dataSize // WAVE id + fmt chunk + data chunk
	fmtSize := 16
	if !pcm16 {
		fmtSize = 18
		riffSize += 2 + 8 + 4 // fmt extension field + fact chunk
	}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(riffSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(fmtSize))
	binary.Write(buf, binary.LittleEndian, uint16(format))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // bytes per second
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // frame size
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))
	if !pcm16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // no fmt extension
		buf.WriteString("fact")
		binary.Write(buf, binary.LittleEndian, uint32(4))
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength))
	}
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
}
