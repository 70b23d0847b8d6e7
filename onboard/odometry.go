package onboard

import "github.com/go-gl/mathgl/mgl64"

// Pose is the planar position estimate derived from the two wheel
// accumulators. Purely informational; the control law never reads it.
type Pose struct {
	Position mgl64.Vec2 `json:"position"`
	Heading  float64    `json:"heading"` // radians, counter clockwise
}

// odometer integrates differential drive forward kinematics from the per
// tick signed wheel deltas. The midpoint heading is used for the
// translation so straight segments and arcs both come out right.
type odometer struct {
	pose           Pose
	metresPerPulse float64
	trackWidth     float64
}

func newOdometer(metresPerPulse, trackWidth float64) *odometer {
	return &odometer{
		metresPerPulse: metresPerPulse,
		trackWidth:     trackWidth,
	}
}

func (o *odometer) advance(deltaA, deltaB int64) Pose {
	dl := float64(deltaA) * o.metresPerPulse
	dr := float64(deltaB) * o.metresPerPulse

	dist := (dl + dr) / 2
	dTheta := 0.0
	if o.trackWidth > 0 {
		dTheta = (dr - dl) / o.trackWidth
	}

	step := mgl64.Rotate2D(o.pose.Heading + dTheta/2).Mul2x1(mgl64.Vec2{dist, 0})
	o.pose.Position = o.pose.Position.Add(step)
	o.pose.Heading += dTheta

	return o.pose
}

func (o *odometer) reset() {
	o.pose = Pose{}
}
