package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/xgsynth/xgsynth"
	"github.com/xgsynth/xgsynth/midi"
	"github.com/xgsynth/xgsynth/oto"
	"github.com/xgsynth/xgsynth/synth"
	"github.com/xgsynth/xgsynth/wavetable"
)

func main() {
	play := flag.Bool("p", false, "Play the input files (default behaviour when no other output is defined).")
	rawOut := flag.Bool("r", false, "Output the rendered file as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered file as .wav file. By default, saves stereo float32 buffer to disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	directory := flag.String("o", "", "Directory where to output all files. By default, everything is placed in the same directory where the original file is.")
	bankFile := flag.String("bank", "", "Program bank .yml file; the built-in defaults are used when omitted.")
	sampleRate := flag.Int("rate", 44100, "Sample rate in Hz.")
	blockSize := flag.Int("block", 512, "Render block size in samples.")
	tail := flag.Float64("tail", 2, "Seconds of release tail rendered after the last event.")
	listInputs := flag.Bool("l", false, "List the available MIDI input devices and exit.")
	liveInput := flag.String("i", "", "Play live from the first MIDI input device with this name prefix; \"*\" takes the first device.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}

	var bank *wavetable.Bank
	if *bankFile != "" {
		var err error
		bank, err = wavetable.Load(*bankFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not load bank: %v\n", err)
			os.Exit(1)
		}
	} else {
		bank = wavetable.New()
	}
	engine := synth.NewEngine(bank, nil, float32(*sampleRate))

	var audioContext *oto.Context
	if *play || *liveInput != "" {
		var err error
		audioContext, err = oto.NewContext(*sampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire oto audio context: %v\n", err)
			os.Exit(1)
		}
	}

	if *listInputs {
		input := midi.NewInput(engine)
		defer input.Close()
		for _, name := range input.Devices() {
			fmt.Println(name)
		}
		os.Exit(0)
	}

	if *liveInput != "" {
		if err := playLive(engine, audioContext, *liveInput, *blockSize); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	retval := 0
	for _, filename := range flag.Args() {
		err := process(engine, audioContext, filename, processOptions{
			play: *play, rawOut: *rawOut, wavOut: *wavOut, pcm: *pcm,
			directory: *directory, sampleRate: *sampleRate,
			blockSize: *blockSize, tail: *tail,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", filename, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

type processOptions struct {
	play, rawOut, wavOut, pcm bool
	directory                 string
	sampleRate, blockSize     int
	tail                      float64
}

func process(engine *synth.Engine, audioContext *oto.Context, filename string, opts processOptions) error {
	engine.Reset()
	duration, err := midi.ScheduleSMF(engine, filename, 0)
	if err != nil {
		return err
	}
	total := int(float64(opts.sampleRate) * (duration + opts.tail))

	buffer := make([]float32, 0, total*2)
	left := make([]float32, opts.blockSize)
	right := make([]float32, opts.blockSize)
	frame := make([]float32, opts.blockSize*2)
	for rendered := 0; rendered < total; rendered += opts.blockSize {
		engine.RenderBlock(left, right)
		xgsynth.Interleave(frame, left, right)
		buffer = append(buffer, frame...)
	}

	if opts.play {
		sink := audioContext.Output()
		if err := sink.WriteAudio(buffer); err != nil {
			return fmt.Errorf("could not play audio: %w", err)
		}
		if err := sink.Close(); err != nil {
			return fmt.Errorf("could not close audio output: %w", err)
		}
	}
	if opts.rawOut {
		raw, err := xgsynth.Raw(buffer, opts.pcm)
		if err != nil {
			return fmt.Errorf("could not generate .raw file: %w", err)
		}
		if err := output(filename, opts.directory, ".raw", raw); err != nil {
			return fmt.Errorf("error outputting .raw file: %w", err)
		}
	}
	if opts.wavOut {
		wav, err := xgsynth.Wav(buffer, opts.sampleRate, opts.pcm)
		if err != nil {
			return fmt.Errorf("could not generate .wav file: %w", err)
		}
		if err := output(filename, opts.directory, ".wav", wav); err != nil {
			return fmt.Errorf("error outputting .wav file: %w", err)
		}
	}
	return nil
}

func playLive(engine *synth.Engine, audioContext *oto.Context, devicePrefix string, blockSize int) error {
	input := midi.NewInput(engine)
	defer input.Close()
	if devicePrefix == "*" {
		devicePrefix = ""
	}
	if err := input.Open(devicePrefix); err != nil {
		return err
	}
	sink := audioContext.Output()
	defer sink.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	left := make([]float32, blockSize)
	right := make([]float32, blockSize)
	frame := make([]float32, blockSize*2)
	for {
		select {
		case <-interrupt:
			return nil
		default:
		}
		engine.RenderBlock(left, right)
		xgsynth.Interleave(frame, left, right)
		if err := sink.WriteAudio(frame); err != nil {
			return fmt.Errorf("could not write audio: %w", err)
		}
	}
}

func output(filename, directory, extension string, contents []byte) error {
	_, name := filepath.Split(filename)
	dir := directory
	if dir == "" {
		dir = filepath.Dir(filename)
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
	f := filepath.Join(dir, name)
	if directory != "" {
		if err := os.MkdirAll(directory, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %w", directory, err)
		}
	}
	if err := os.WriteFile(f, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %w", f, err)
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Command line player for .mid files.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
