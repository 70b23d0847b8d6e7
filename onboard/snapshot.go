package onboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const tokenMask = 0xFFFFFFFF

// Snapshot is the immutable per tick record published to observers. It is
// a value; a new one supersedes the old, nothing mutates it in place.
// Identity and ordering are carried entirely by the counter.
type Snapshot struct {
	Counter   uint64          `json:"counter"`
	CycleTime decimal.Decimal `json:"cycleTime"`
	Token     string          `json:"token"`
	PositionA int64           `json:"positionA"`
	PositionB int64           `json:"positionB"`
	OutputA   decimal.Decimal `json:"outputA"`
	OutputB   decimal.Decimal `json:"outputB"`
	Pose      Pose            `json:"pose"`
}

// TokenString renders the low 32 bits of a token as upper case hex.
func TokenString(token uint64) string {
	return strings.ToUpper(strconv.FormatUint(token&tokenMask, 16))
}

func (s Snapshot) Equal(other Snapshot) bool {
	return s.Counter == other.Counter
}

func (s Snapshot) Less(other Snapshot) bool {
	return s.Counter < other.Counter
}

func (s Snapshot) String() string {
	return fmt.Sprintf("[%d %s %s %d %d %s %s]",
		s.Counter,
		s.CycleTime.StringFixed(ScaleCycleTime),
		s.Token,
		s.PositionA,
		s.PositionB,
		s.OutputA.StringFixed(ScaleOutput),
		s.OutputB.StringFixed(ScaleOutput),
	)
}
