package synth

// Yamaha system-exclusive handling. Only manufacturer 0x43 with the XG
// model id is accepted; anything else, including short payloads, is
// rejected by early return.

const (
	sysExStart      = 0xF0
	sysExEnd        = 0xF7
	manufacturerID  = 0x43
	xgModelID       = 0x4C
	subStatusParam  = 0x1
	subStatusBulk   = 0x0
	addrSystemHi    = 0x00
	addrMultipartHi = 0x08
)

// Multipart parameter addresses (address low byte).
const (
	partBankMSB = 0x01
	partBankLSB = 0x02
	partProgram = 0x03
	partMode    = 0x07
	partVolume  = 0x0B
	partPan     = 0x0E
)

// System parameter addresses (address low byte, with mid byte 0).
const (
	sysMasterVolume = 0x04
	sysXGOn         = 0x7E
)

func (e *Engine) handleSysEx(data []byte) {
	if len(data) > 0 && data[0] == sysExStart {
		data = data[1:]
	}
	if len(data) > 0 && data[len(data)-1] == sysExEnd {
		data = data[:len(data)-1]
	}
	// manufacturer, device/sub-status, model, 3 address bytes, ≥1 data byte
	if len(data) < 7 {
		return
	}
	if data[0] != manufacturerID || data[2] != xgModelID {
		return
	}
	switch data[1] >> 4 {
	case subStatusParam:
		e.handleXGParameter(data[3], data[4], data[5], data[6:])
	case subStatusBulk:
		// bulk dumps are accepted but carry no state this core applies
	}
}

func (e *Engine) handleXGParameter(hi, mid, lo byte, value []byte) {
	if len(value) == 0 {
		return
	}
	switch hi {
	case addrSystemHi:
		if mid != 0 {
			return
		}
		switch lo {
		case sysXGOn:
			for i, c := range e.channels {
				c.Reset()
				e.disabled[i] = false
			}
		case sysMasterVolume:
			e.masterVolume = clamp01(float32(value[0]&0x7F) / 127)
		}
	case addrMultipartHi:
		if int(mid) >= len(e.channels) {
			return
		}
		c := e.channels[mid]
		v := value[0] & 0x7F
		switch lo {
		case partBankMSB:
			c.ControlChange(ccBankMSB, v)
		case partBankLSB:
			c.ControlChange(ccBankLSB, v)
		case partProgram:
			c.ProgramChange(v)
		case partMode:
			c.SetDrumMode(v != 0)
		case partVolume:
			c.ControlChange(ccVolume, v)
		case partPan:
			c.ControlChange(ccPan, v)
		}
	}
}
