package onboard

import "github.com/shopspring/decimal"

// CommandKind discriminates everything the presentation layer may ask of
// the loop. One enum, one dispatch switch; no string keyed maps.
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdStop
	CmdReset
	CmdShutdown
	CmdSetControlled
	CmdSetLimitA
	CmdSetLimitB
	CmdSetDestination
	CmdSetGain
	CmdManualA
	CmdManualB
)

func (k CommandKind) String() string {
	switch k {
	case CmdStart:
		return "start"
	case CmdStop:
		return "stop"
	case CmdReset:
		return "reset"
	case CmdShutdown:
		return "shutdown"
	case CmdSetControlled:
		return "setControlled"
	case CmdSetLimitA:
		return "setLimitA"
	case CmdSetLimitB:
		return "setLimitB"
	case CmdSetDestination:
		return "setDestination"
	case CmdSetGain:
		return "setGain"
	case CmdManualA:
		return "manualA"
	case CmdManualB:
		return "manualB"
	}
	return "unknown"
}

// Command is a single request from the presentation layer. Value carries
// the payload for the Set*/Manual* kinds; Flag is only read by
// CmdSetControlled.
type Command struct {
	Kind  CommandKind
	Flag  bool
	Value decimal.Decimal
}
