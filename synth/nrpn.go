package synth

// Registered parameter numbers.
const (
	rpnPitchBendRange = 0x0000
	rpnFineTune       = 0x0001
	rpnCoarseTune     = 0x0002
)

// nrpnTarget is the closed set of physical parameters addressable through
// NRPN. The address→target mapping below is pure data; the target switch in
// applyNRPNTarget is the only place that touches the units, so an illegal
// address/parameter pair is unrepresentable.
type nrpnTarget uint8

const (
	nrpnVibratoRate nrpnTarget = iota
	nrpnVibratoDepth
	nrpnVibratoDelay
	nrpnTremoloDepth
	nrpnLFO2Rate
	nrpnLFO2Depth
	nrpnLFO2Delay
	nrpnLFO3Rate
	nrpnLFO3Depth
	nrpnLFO3Delay
	nrpnFilterCutoff
	nrpnFilterResonance
	nrpnFilterKeyFollow
	nrpnFilterWidth
	nrpnAmpAttack
	nrpnAmpDecay
	nrpnAmpSustain
	nrpnAmpRelease
	nrpnFilterAttack
	nrpnFilterDecay
	nrpnFilterRelease
)

// nrpnEntry maps the 14-bit data entry value linearly onto [lo, hi] in the
// target's physical unit (Hz, seconds, level).
type nrpnEntry struct {
	target nrpnTarget
	lo, hi float32
}

// nrpnAddr packs an MSB/LSB pair the same way the selector controllers do.
func nrpnAddr(msb, lsb byte) uint16 {
	return uint16(msb)<<7 | uint16(lsb)
}

var nrpnTable = map[uint16]nrpnEntry{
	nrpnAddr(0x01, 0x08): {nrpnVibratoRate, 0.1, 12},
	nrpnAddr(0x01, 0x09): {nrpnVibratoDepth, 0, 1},
	nrpnAddr(0x01, 0x0A): {nrpnVibratoDelay, 0, 2},
	nrpnAddr(0x01, 0x0B): {nrpnTremoloDepth, 0, 1},
	nrpnAddr(0x01, 0x10): {nrpnLFO2Rate, 0.1, 12},
	nrpnAddr(0x01, 0x11): {nrpnLFO2Depth, 0, 1},
	nrpnAddr(0x01, 0x12): {nrpnLFO2Delay, 0, 2},
	nrpnAddr(0x01, 0x13): {nrpnLFO3Rate, 0.1, 12},
	nrpnAddr(0x01, 0x14): {nrpnLFO3Depth, 0, 1},
	nrpnAddr(0x01, 0x15): {nrpnLFO3Delay, 0, 2},
	nrpnAddr(0x01, 0x20): {nrpnFilterCutoff, 20, 16000},
	nrpnAddr(0x01, 0x21): {nrpnFilterResonance, 0.1, 10},
	nrpnAddr(0x01, 0x22): {nrpnFilterKeyFollow, 0, 2},
	nrpnAddr(0x01, 0x23): {nrpnFilterWidth, 0, 1},
	nrpnAddr(0x01, 0x63): {nrpnAmpAttack, 0.001, 5},
	nrpnAddr(0x01, 0x64): {nrpnAmpDecay, 0.001, 5},
	nrpnAddr(0x01, 0x65): {nrpnAmpSustain, 0, 1},
	nrpnAddr(0x01, 0x66): {nrpnAmpRelease, 0.001, 5},
	nrpnAddr(0x01, 0x68): {nrpnFilterAttack, 0.001, 5},
	nrpnAddr(0x01, 0x69): {nrpnFilterDecay, 0.001, 5},
	nrpnAddr(0x01, 0x6A): {nrpnFilterRelease, 0.001, 5},
}

// Drum NRPN function numbers (MSB); the LSB addresses the drum note.
const (
	nrpnDrumTuneMSB  = 0x18
	nrpnDrumLevelMSB = 0x1A
	nrpnDrumPanMSB   = 0x1C
)

// applyDataEntry routes a data entry change to whichever of RPN/NRPN is
// currently selected; the selectors are mutually exclusive.
func (c *ChannelRenderer) applyDataEntry() {
	value := uint16(c.controllers[ccDataEntryMSB])<<7 | uint16(c.controllers[ccDataEntryLSB])
	if c.rpn != paramNull {
		c.applyRPN(c.rpn, value)
		return
	}
	if c.nrpn != paramNull {
		c.applyNRPN(c.nrpn, value)
	}
}

func (c *ChannelRenderer) applyRPN(rpn, value uint16) {
	msb := byte(value >> 7)
	lsb := byte(value & 0x7F)
	switch rpn {
	case rpnPitchBendRange:
		c.bendRange = float32(msb) + float32(lsb)/100
	case rpnFineTune:
		c.fineTune = (float32(value) - 8192) / 8192 * 100
	case rpnCoarseTune:
		c.coarseTune = float32(msb) - 64
	}
}

func (c *ChannelRenderer) applyNRPN(nrpn, value uint16) {
	msb := byte(nrpn >> 7)
	lsb := byte(nrpn & 0x7F)
	dataMSB := byte(value >> 7)
	switch msb {
	case nrpnDrumTuneMSB:
		c.drumTune[lsb] = float32(dataMSB) - 64 // semitones
		return
	case nrpnDrumLevelMSB:
		c.drumLevel[lsb] = float32(dataMSB) / 127
		return
	case nrpnDrumPanMSB:
		c.drumPan[lsb] = float32(dataMSB) / 127
		return
	}
	entry, ok := nrpnTable[nrpn]
	if !ok {
		return
	}
	phys := entry.lo + (entry.hi-entry.lo)*float32(value)/16383
	c.applyNRPNTarget(entry.target, phys)
}

// applyNRPNTarget edits the channel's parameter copy (never the bank's) and
// broadcasts the change to live notes.
func (c *ChannelRenderer) applyNRPNTarget(target nrpnTarget, phys float32) {
	switch target {
	case nrpnVibratoRate:
		c.params.LFOs[0].Rate = phys
		c.forEachLFO(0, func(l *LFO) { l.SetRate(phys) })
	case nrpnVibratoDepth:
		c.vibratoDepth = phys
	case nrpnVibratoDelay:
		c.params.LFOs[0].Delay = phys
		c.forEachLFO(0, func(l *LFO) { l.SetDelay(phys) })
	case nrpnTremoloDepth:
		c.tremoloDepth = phys
	case nrpnLFO2Rate:
		c.params.LFOs[1].Rate = phys
		c.forEachLFO(1, func(l *LFO) { l.SetRate(phys) })
	case nrpnLFO2Depth:
		c.params.LFOs[1].Depth = phys
		c.forEachLFO(1, func(l *LFO) { l.SetDepth(phys) })
	case nrpnLFO2Delay:
		c.params.LFOs[1].Delay = phys
		c.forEachLFO(1, func(l *LFO) { l.SetDelay(phys) })
	case nrpnLFO3Rate:
		c.params.LFOs[2].Rate = phys
		c.forEachLFO(2, func(l *LFO) { l.SetRate(phys) })
	case nrpnLFO3Depth:
		c.params.LFOs[2].Depth = phys
		c.forEachLFO(2, func(l *LFO) { l.SetDepth(phys) })
	case nrpnLFO3Delay:
		c.params.LFOs[2].Delay = phys
		c.forEachLFO(2, func(l *LFO) { l.SetDelay(phys) })
	case nrpnFilterCutoff:
		c.params.Filter.Cutoff = phys
		c.forEachFilter(func(f *ResonantFilter) { f.SetCutoff(phys) })
	case nrpnFilterResonance:
		c.params.Filter.Resonance = phys
		c.forEachFilter(func(f *ResonantFilter) { f.SetResonance(phys) })
	case nrpnFilterKeyFollow:
		c.params.Filter.KeyFollow = phys
		c.forEachFilter(func(f *ResonantFilter) { f.SetKeyFollow(phys) })
	case nrpnFilterWidth:
		c.params.Filter.StereoWidth = phys
		c.forEachFilter(func(f *ResonantFilter) { f.SetStereoWidth(phys) })
	case nrpnAmpAttack:
		c.params.AmpEnv.Attack = phys
		c.broadcastAmpEnv()
	case nrpnAmpDecay:
		c.params.AmpEnv.Decay = phys
		c.broadcastAmpEnv()
	case nrpnAmpSustain:
		c.params.AmpEnv.Sustain = phys
		c.broadcastAmpEnv()
	case nrpnAmpRelease:
		c.params.AmpEnv.Release = phys
		c.broadcastAmpEnv()
	case nrpnFilterAttack:
		c.params.FilterEnv.Attack = phys
		c.broadcastFilterEnv()
	case nrpnFilterDecay:
		c.params.FilterEnv.Decay = phys
		c.broadcastFilterEnv()
	case nrpnFilterRelease:
		c.params.FilterEnv.Release = phys
		c.broadcastFilterEnv()
	}
}

func (c *ChannelRenderer) forEachLFO(index int, f func(*LFO)) {
	for _, n := range c.notes {
		f(n.lfos[index])
	}
}

func (c *ChannelRenderer) forEachFilter(f func(*ResonantFilter)) {
	for _, n := range c.notes {
		for _, p := range n.partials {
			if p.Filter() != nil {
				f(p.Filter())
			}
		}
	}
}

func (c *ChannelRenderer) broadcastAmpEnv() {
	for _, n := range c.notes {
		for _, p := range n.partials {
			p.AmpEnvelope().SetParams(c.params.AmpEnv)
		}
	}
}

func (c *ChannelRenderer) broadcastFilterEnv() {
	for _, n := range c.notes {
		for _, p := range n.partials {
			p.FilterEnvelope().SetParams(c.params.FilterEnv)
		}
	}
}
