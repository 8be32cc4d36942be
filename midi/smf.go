package midi

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/xgsynth/xgsynth/synth"
)

// ScheduleSMF reads a Standard MIDI File and schedules every supported
// event into the engine, offset seconds into the render clock. Ticks are
// converted with the file's tempo map; tempo changes anywhere in the file
// apply to all tracks. Returns the time of the last event relative to
// offset.
func ScheduleSMF(engine *synth.Engine, path string, offset float64) (float64, error) {
	song, err := smf.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("could not read MIDI file %v: %w", path, err)
	}
	ticks, ok := song.TimeFormat.(smf.MetricTicks)
	if !ok {
		return 0, fmt.Errorf("MIDI file %v: only metric time format is supported", path)
	}
	ticksPerQuarter := float64(ticks.Resolution())

	type timedMessage struct {
		tick int64
		msg  smf.Message
	}
	var all []timedMessage
	for _, track := range song.Tracks {
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			all = append(all, timedMessage{tick: abs, msg: ev.Message})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].tick < all[j].tick })

	bpm := 120.0
	var lastTick int64
	var lastTime float64
	end := 0.0
	for _, tm := range all {
		lastTime += float64(tm.tick-lastTick) * 60 / (bpm * ticksPerQuarter)
		lastTick = tm.tick
		var newBPM float64
		if tm.msg.GetMetaTempo(&newBPM) {
			if newBPM > 0 {
				bpm = newBPM
			}
			continue
		}
		ev, ok := decodeMessage(midi.Message(tm.msg.Bytes()))
		if !ok {
			continue
		}
		engine.ScheduleAt(ev, offset+lastTime)
		if lastTime > end {
			end = lastTime
		}
	}
	return end, nil
}
