package wire

import (
	"math"

	"github.com/pkg/errors"
)

// Well-known type names, used both as registry keys and as the names the
// endpoint pre-registers for built-in decoders.
const (
	TypeNameAnalog              = "vrpn_Analog Channel"
	TypeNameButtonChange        = "vrpn_Button Change"
	TypeNameButtonStates        = "vrpn_Button States"
	TypeNameTrackerPosQuat      = "vrpn_Tracker Pos_Quat"
	TypeNameTrackerVelocity     = "vrpn_Tracker Velocity"
	TypeNameTrackerAcceleration = "vrpn_Tracker Acceleration"
)

// maxReasonableCount bounds the analog channel count so a corrupt or
// adversarial f64 that happens to round to a small-looking integer but is
// absurdly large still fails fast instead of allocating unboundedly.
const maxReasonableCount = 1 << 20

// Analog is the decoded "vrpn_Analog Channel" payload: a count carried as a
// float (per the wire format) followed by that many f64 channel values.
type Analog struct {
	Channels []float64
}

// DecodeAnalog decodes a vrpn_Analog Channel body.
func DecodeAnalog(body []byte) (*Analog, error) {
	c := NewCursor(body)
	rawCount, err := c.ReadF64()
	if err != nil {
		return nil, err
	}
	if math.IsNaN(rawCount) || math.IsInf(rawCount, 0) || rawCount < 0 {
		return nil, errors.WithStack(ErrBadPayload)
	}
	count := int(math.Round(rawCount))
	if count < 0 || count > maxReasonableCount || count*8 > c.Remaining() {
		return nil, errors.WithStack(ErrBadPayload)
	}

	channels := make([]float64, count)
	for i := range channels {
		v, err := c.ReadF64()
		if err != nil {
			return nil, err
		}
		channels[i] = v
	}
	return &Analog{Channels: channels}, nil
}

// EncodeAnalog encodes a to a vrpn_Analog Channel body.
func EncodeAnalog(a *Analog) []byte {
	c := NewWriteCursor()
	c.WriteF64(float64(len(a.Channels)))
	for _, v := range a.Channels {
		c.WriteF64(v)
	}
	return c.Bytes()
}

// ButtonChangeEvent is one (id, state) pair within a ButtonChange message.
type ButtonChangeEvent struct {
	ID    int32
	State int32
}

// ButtonChange is the decoded "vrpn_Button Change" payload.
type ButtonChange struct {
	Buttons []ButtonChangeEvent
}

// DecodeButtonChange decodes a vrpn_Button Change body.
func DecodeButtonChange(body []byte) (*ButtonChange, error) {
	c := NewCursor(body)
	count, err := readNonNegativeCount(c)
	if err != nil {
		return nil, err
	}
	if count*8 > c.Remaining() {
		return nil, errors.WithStack(ErrBadPayload)
	}

	events := make([]ButtonChangeEvent, count)
	for i := range events {
		id, err := c.ReadI32()
		if err != nil {
			return nil, err
		}
		state, err := c.ReadI32()
		if err != nil {
			return nil, err
		}
		events[i] = ButtonChangeEvent{ID: id, State: state}
	}
	return &ButtonChange{Buttons: events}, nil
}

// EncodeButtonChange encodes b to a vrpn_Button Change body.
func EncodeButtonChange(b *ButtonChange) []byte {
	c := NewWriteCursor()
	c.WriteI32(int32(len(b.Buttons)))
	for _, e := range b.Buttons {
		c.WriteI32(e.ID)
		c.WriteI32(e.State)
	}
	return c.Bytes()
}

// ButtonStates is the decoded "vrpn_Button States" payload: one state per
// button, indexed 0..len(States).
type ButtonStates struct {
	States []int32
}

// DecodeButtonStates decodes a vrpn_Button States body.
func DecodeButtonStates(body []byte) (*ButtonStates, error) {
	c := NewCursor(body)
	count, err := readNonNegativeCount(c)
	if err != nil {
		return nil, err
	}
	if count*4 > c.Remaining() {
		return nil, errors.WithStack(ErrBadPayload)
	}

	states := make([]int32, count)
	for i := range states {
		v, err := c.ReadI32()
		if err != nil {
			return nil, err
		}
		states[i] = v
	}
	return &ButtonStates{States: states}, nil
}

// EncodeButtonStates encodes b to a vrpn_Button States body.
func EncodeButtonStates(b *ButtonStates) []byte {
	c := NewWriteCursor()
	c.WriteI32(int32(len(b.States)))
	for _, v := range b.States {
		c.WriteI32(v)
	}
	return c.Bytes()
}

func readNonNegativeCount(c *Cursor) (int, error) {
	n, err := c.ReadI32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.WithStack(ErrBadPayload)
	}
	return int(n), nil
}

// Vec3 is a 3-component position or velocity vector.
type Vec3 [3]float64

// Quat is a (w, x, y, z) quaternion, in that wire order.
type Quat [4]float64

func (c *Cursor) readVec3() (Vec3, error) {
	var v Vec3
	for i := range v {
		f, err := c.ReadF64()
		if err != nil {
			return Vec3{}, err
		}
		v[i] = f
	}
	return v, nil
}

func (c *Cursor) writeVec3(v Vec3) {
	for _, f := range v {
		c.WriteF64(f)
	}
}

func (c *Cursor) readQuat() (Quat, error) {
	var q Quat
	for i := range q {
		f, err := c.ReadF64()
		if err != nil {
			return Quat{}, err
		}
		q[i] = f
	}
	return q, nil
}

func (c *Cursor) writeQuat(q Quat) {
	for _, f := range q {
		c.WriteF64(f)
	}
}

func (c *Cursor) readSensorAndPad() (int32, error) {
	sensor, err := c.ReadI32()
	if err != nil {
		return 0, err
	}
	if _, err := c.ReadI32(); err != nil { // pad
		return 0, err
	}
	return sensor, nil
}

func (c *Cursor) writeSensorAndPad(sensor int32) {
	c.WriteI32(sensor)
	c.WriteI32(0)
}

// TrackerPosQuat is the decoded "vrpn_Tracker Pos_Quat" payload.
type TrackerPosQuat struct {
	Sensor int32
	Pos    Vec3
	Quat   Quat
}

// DecodeTrackerPosQuat decodes a vrpn_Tracker Pos_Quat body.
func DecodeTrackerPosQuat(body []byte) (*TrackerPosQuat, error) {
	c := NewCursor(body)
	sensor, err := c.readSensorAndPad()
	if err != nil {
		return nil, err
	}
	pos, err := c.readVec3()
	if err != nil {
		return nil, err
	}
	quat, err := c.readQuat()
	if err != nil {
		return nil, err
	}
	return &TrackerPosQuat{Sensor: sensor, Pos: pos, Quat: quat}, nil
}

// EncodeTrackerPosQuat encodes t to a vrpn_Tracker Pos_Quat body.
func EncodeTrackerPosQuat(t *TrackerPosQuat) []byte {
	c := NewWriteCursor()
	c.writeSensorAndPad(t.Sensor)
	c.writeVec3(t.Pos)
	c.writeQuat(t.Quat)
	return c.Bytes()
}

// TrackerVelocity is the decoded "vrpn_Tracker Velocity" payload.
type TrackerVelocity struct {
	Sensor  int32
	Vel     Vec3
	VelQuat Quat
}

// DecodeTrackerVelocity decodes a vrpn_Tracker Velocity body.
func DecodeTrackerVelocity(body []byte) (*TrackerVelocity, error) {
	c := NewCursor(body)
	sensor, err := c.readSensorAndPad()
	if err != nil {
		return nil, err
	}
	vel, err := c.readVec3()
	if err != nil {
		return nil, err
	}
	velQuat, err := c.readQuat()
	if err != nil {
		return nil, err
	}
	return &TrackerVelocity{Sensor: sensor, Vel: vel, VelQuat: velQuat}, nil
}

// EncodeTrackerVelocity encodes t to a vrpn_Tracker Velocity body.
func EncodeTrackerVelocity(t *TrackerVelocity) []byte {
	c := NewWriteCursor()
	c.writeSensorAndPad(t.Sensor)
	c.writeVec3(t.Vel)
	c.writeQuat(t.VelQuat)
	return c.Bytes()
}

// TrackerAcceleration is the decoded "vrpn_Tracker Acceleration" payload.
type TrackerAcceleration struct {
	Sensor    int32
	Acc       Vec3
	AccQuat   Quat
	AccQuatDt float64
}

// DecodeTrackerAcceleration decodes a vrpn_Tracker Acceleration body.
func DecodeTrackerAcceleration(body []byte) (*TrackerAcceleration, error) {
	c := NewCursor(body)
	sensor, err := c.readSensorAndPad()
	if err != nil {
		return nil, err
	}
	acc, err := c.readVec3()
	if err != nil {
		return nil, err
	}
	accQuat, err := c.readQuat()
	if err != nil {
		return nil, err
	}
	dt, err := c.ReadF64()
	if err != nil {
		return nil, err
	}
	return &TrackerAcceleration{Sensor: sensor, Acc: acc, AccQuat: accQuat, AccQuatDt: dt}, nil
}

// EncodeTrackerAcceleration encodes t to a vrpn_Tracker Acceleration body.
func EncodeTrackerAcceleration(t *TrackerAcceleration) []byte {
	c := NewWriteCursor()
	c.writeSensorAndPad(t.Sensor)
	c.writeVec3(t.Acc)
	c.writeQuat(t.AccQuat)
	c.WriteF64(t.AccQuatDt)
	return c.Bytes()
}
