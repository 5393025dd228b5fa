package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrpn/vrpn-go/wire"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := &wire.GenericMessage{
		Timestamp: wire.TimeVal{Sec: 1000, Usec: 500},
		Sender:    3,
		Type:      7,
		Body:      []byte("abc"),
		Class:     wire.ClassReliable,
	}

	c := wire.NewWriteCursor()
	seq := uint32(42)
	wire.EncodeMessage(c, msg, &seq)

	// header(24) + body(3) = 27, padded to 32.
	require.Equal(t, 32, len(c.Bytes()))

	dc := wire.NewCursor(c.Bytes())
	got, err := wire.DecodeMessage(dc)
	require.NoError(t, err)
	assert.Equal(t, msg.Timestamp, got.Timestamp)
	assert.Equal(t, msg.Sender, got.Sender)
	assert.Equal(t, msg.Type, got.Type)
	assert.Equal(t, msg.Body, got.Body)
	assert.Equal(t, 32, dc.Offset())
}

func TestEmptyBodyMessageMatchesSpecExampleBytes(t *testing.T) {
	// spec.md S1: ts={1,2}, sender=3, type=4, body=[].
	msg := &wire.GenericMessage{
		Timestamp: wire.TimeVal{Sec: 1, Usec: 2},
		Sender:    3,
		Type:      4,
	}
	c := wire.NewWriteCursor()
	wire.EncodeMessage(c, msg, nil)

	want := []byte{
		0x00, 0x00, 0x00, 0x18, // length = 24
		0x00, 0x00, 0x00, 0x01, // sec = 1
		0x00, 0x00, 0x00, 0x02, // usec = 2
		0x00, 0x00, 0x00, 0x03, // sender = 3
		0x00, 0x00, 0x00, 0x04, // type = 4
		0x00, 0x00, 0x00, 0x00, // pad
	}
	require.Equal(t, want, c.Bytes())

	got, err := wire.DecodeMessage(wire.NewCursor(c.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, msg.Timestamp, got.Timestamp)
	assert.Equal(t, msg.Sender, got.Sender)
	assert.Equal(t, msg.Type, got.Type)
	assert.Empty(t, got.Body)
}

func TestTrackerPosQuatMatchesSpecExampleBytes(t *testing.T) {
	// spec.md S2: sensor=7, pos=(1,2,3), quat=(1,0,0,0). See DESIGN.md's
	// Open Question resolutions for why the pad word is present even
	// though S2's stated length total omits it.
	tr := &wire.TrackerPosQuat{
		Sensor: 7,
		Pos:    wire.Vec3{1.0, 2.0, 3.0},
		Quat:   wire.Quat{1.0, 0.0, 0.0, 0.0},
	}
	body := wire.EncodeTrackerPosQuat(tr)
	require.Len(t, body, 64)

	want := []byte{
		0x00, 0x00, 0x00, 0x07, // sensor = 7
		0x00, 0x00, 0x00, 0x00, // pad
		0x3F, 0xF0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 1.0
		0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 2.0
		0x40, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 3.0
		0x3F, 0xF0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 1.0
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 0.0
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 0.0
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 0.0
	}
	require.Equal(t, want, body)

	got, err := wire.DecodeTrackerPosQuat(body)
	require.NoError(t, err)
	assert.Equal(t, tr, got)
}

func TestSenderDescriptionMatchesSpecExampleBytes(t *testing.T) {
	// spec.md S3: name "Tracker0" (8 bytes + nul).
	desc := &wire.SenderDescription{Name: []byte("Tracker0")}
	body := wire.EncodeSenderDescription(desc)

	want := []byte{0x00, 0x00, 0x00, 0x09, 'T', 'r', 'a', 'c', 'k', 'e', 'r', '0', 0x00}
	require.Equal(t, want, body)

	got, err := wire.DecodeSenderDescription(body)
	require.NoError(t, err)
	assert.Equal(t, desc.Name, got.Name)
}

func TestButtonChangeMatchesSpecExampleBytes(t *testing.T) {
	// spec.md S6: num=2, presses on buttons 0 and 4.
	b := &wire.ButtonChange{Buttons: []wire.ButtonChangeEvent{{ID: 0, State: 1}, {ID: 4, State: 1}}}
	body := wire.EncodeButtonChange(b)

	want := []byte{
		0x00, 0x00, 0x00, 0x02, // count = 2
		0x00, 0x00, 0x00, 0x00, // id = 0
		0x00, 0x00, 0x00, 0x01, // state = 1
		0x00, 0x00, 0x00, 0x04, // id = 4
		0x00, 0x00, 0x00, 0x01, // state = 1
	}
	require.Equal(t, want, body)
	require.Len(t, body, 20) // header length = 24 + 20 = 44, matching S6

	got, err := wire.DecodeButtonChange(body)
	require.NoError(t, err)
	assert.Equal(t, b.Buttons, got.Buttons)
}

func TestMessageEncodingIsExactly8Aligned(t *testing.T) {
	for _, bodyLen := range []int{0, 1, 7, 8, 9, 15, 16} {
		msg := &wire.GenericMessage{Body: make([]byte, bodyLen)}
		c := wire.NewWriteCursor()
		wire.EncodeMessage(c, msg, nil)
		assert.Zero(t, len(c.Bytes())%8, "bodyLen=%d produced unaligned frame", bodyLen)
	}
}

func TestDecodeStreamHandlesTrailingPartialMessage(t *testing.T) {
	msg1 := &wire.GenericMessage{Body: []byte("hello")}
	msg2 := &wire.GenericMessage{Body: []byte("world!!")}

	c := wire.NewWriteCursor()
	wire.EncodeMessage(c, msg1, nil)
	wire.EncodeMessage(c, msg2, nil)
	full := c.Bytes()

	// Split mid-second-message: first read only sees msg1 plus a partial msg2.
	split := len(full) - 5
	cur := wire.NewCursor(full[:split])
	msgs, err := wire.DecodeStream(cur)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg1.Body, msgs[0].Body)

	// Remaining bytes (the undecoded tail) are still there for the next read.
	tail := cur.Tail()
	cur2 := wire.NewCursor(append(append([]byte(nil), tail...), full[split:]...))
	msgs2, err := wire.DecodeStream(cur2)
	require.NoError(t, err)
	require.Len(t, msgs2, 1)
	assert.Equal(t, msg2.Body, msgs2[0].Body)
}

func TestDecodeStreamMultipleMessagesInOneBuffer(t *testing.T) {
	c := wire.NewWriteCursor()
	for i := 0; i < 5; i++ {
		wire.EncodeMessage(c, &wire.GenericMessage{Sender: wire.SenderId(i), Body: []byte{byte(i)}}, nil)
	}

	cur := wire.NewCursor(c.Bytes())
	msgs, err := wire.DecodeStream(cur)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		assert.Equal(t, wire.SenderId(i), m.Sender)
	}
	assert.Zero(t, cur.Remaining())
}

func TestDecodeMessageRejectsShortLength(t *testing.T) {
	c := wire.NewWriteCursor()
	c.WriteU32(10) // less than HeaderSize
	c.WriteU64(0)
	c.WriteU64(0)
	_, err := wire.DecodeMessage(wire.NewCursor(c.Bytes()))
	require.ErrorIs(t, err, wire.ErrBadLength)
}

func TestLengthPrefixedNulStringRoundTrip(t *testing.T) {
	c := wire.NewWriteCursor()
	c.WriteLengthPrefixedNulString([]byte("vrpn_Tracker"))
	dc := wire.NewCursor(c.Bytes())
	got, err := dc.ReadLengthPrefixedNulString()
	require.NoError(t, err)
	assert.Equal(t, []byte("vrpn_Tracker"), got)
}

func TestLengthPrefixedNulStringRejectsMissingTerminator(t *testing.T) {
	c := wire.NewWriteCursor()
	c.WriteU32(3)
	c.WriteBytes([]byte("abc")) // no trailing 0x00
	_, err := wire.NewCursor(c.Bytes()).ReadLengthPrefixedNulString()
	require.ErrorIs(t, err, wire.ErrBadPayload)
}

func TestDualLengthNulStringRoundTrip(t *testing.T) {
	c := wire.NewWriteCursor()
	c.WriteDualLengthNulString([]byte("in.log"))
	dc := wire.NewCursor(c.Bytes())
	got, err := dc.ReadDualLengthNulString()
	require.NoError(t, err)
	assert.Equal(t, []byte("in.log"), got)
}

func TestNulTerminatedRoundTrip(t *testing.T) {
	c := wire.NewWriteCursor()
	c.WriteNulTerminated([]byte("192.168.1.1"))
	dc := wire.NewCursor(c.Bytes())
	got, err := dc.ReadNulTerminated()
	require.NoError(t, err)
	assert.Equal(t, []byte("192.168.1.1"), got)
}

func TestCookieRoundTrip(t *testing.T) {
	k := wire.Cookie{Major: wire.CookieVersionMajor, Minor: wire.CookieVersionMinor, LogMode: 0}
	raw := k.Encode()
	require.Len(t, raw, wire.CookieSize)

	got, err := wire.DecodeCookie(raw[:])
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestCookieMatchesSpecExample(t *testing.T) {
	// spec.md S4: major 7, minor 35, log mode 0.
	k := wire.Cookie{Major: 7, Minor: 35, LogMode: 0}
	raw := k.Encode()
	text := "vrpn: ver. 07.35  0"
	for i, b := range []byte(text) {
		require.Equalf(t, b, raw[i], "byte %d mismatch", i)
	}
	for i := len(text); i < wire.CookieSize; i++ {
		require.Equalf(t, byte(0), raw[i], "expected zero padding at %d", i)
	}
}

func TestCheckCompatibleRejectsMajorMismatch(t *testing.T) {
	local := wire.Cookie{Major: 7, Minor: 35}
	remote := wire.Cookie{Major: 6, Minor: 35}
	err := wire.CheckCompatible(local, remote)
	require.ErrorIs(t, err, wire.ErrIncompatibleVersion)
}

func TestCheckCompatibleAcceptsMinorMismatch(t *testing.T) {
	local := wire.Cookie{Major: 7, Minor: 35}
	remote := wire.Cookie{Major: 7, Minor: 10}
	require.NoError(t, wire.CheckCompatible(local, remote))
}

func TestUDPAnnouncementRoundTrip(t *testing.T) {
	raw := wire.EncodeUDPAnnouncement("10.0.0.5", 3883)
	assert.GreaterOrEqual(t, len(raw), 16)

	ip, port, err := wire.DecodeUDPAnnouncement(raw)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", ip)
	assert.Equal(t, uint16(3883), port)
}

func TestUDPAnnouncementMatchesSpecExampleBytes(t *testing.T) {
	// spec.md S5: client at 10.0.0.1, TCP port 51221, zero-padded to 16.
	raw := wire.EncodeUDPAnnouncement("10.0.0.1", 51221)
	want := append([]byte("10.0.0.1 51221\x00"), 0x00)
	require.Equal(t, want, raw)
	require.Len(t, raw, 16)

	ip, port, err := wire.DecodeUDPAnnouncement(raw)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip)
	assert.Equal(t, uint16(51221), port)
}

func TestAnalogRoundTrip(t *testing.T) {
	a := &wire.Analog{Channels: []float64{1.5, -2.25, 0, 99.9}}
	body := wire.EncodeAnalog(a)
	got, err := wire.DecodeAnalog(body)
	require.NoError(t, err)
	assert.Equal(t, a.Channels, got.Channels)
}

func TestAnalogRejectsOversizedCount(t *testing.T) {
	c := wire.NewWriteCursor()
	c.WriteF64(1e18) // absurd count, no bytes follow
	_, err := wire.DecodeAnalog(c.Bytes())
	require.ErrorIs(t, err, wire.ErrBadPayload)
}

func TestButtonChangeRoundTrip(t *testing.T) {
	b := &wire.ButtonChange{Buttons: []wire.ButtonChangeEvent{{ID: 1, State: 1}, {ID: 2, State: 0}}}
	body := wire.EncodeButtonChange(b)
	got, err := wire.DecodeButtonChange(body)
	require.NoError(t, err)
	assert.Equal(t, b.Buttons, got.Buttons)
}

func TestButtonStatesRoundTrip(t *testing.T) {
	b := &wire.ButtonStates{States: []int32{1, 0, 1, 1}}
	body := wire.EncodeButtonStates(b)
	got, err := wire.DecodeButtonStates(body)
	require.NoError(t, err)
	assert.Equal(t, b.States, got.States)
}

func TestTrackerPosQuatRoundTrip(t *testing.T) {
	tr := &wire.TrackerPosQuat{
		Sensor: 2,
		Pos:    wire.Vec3{1, 2, 3},
		Quat:   wire.Quat{0, 0, 0, 1},
	}
	body := wire.EncodeTrackerPosQuat(tr)
	got, err := wire.DecodeTrackerPosQuat(body)
	require.NoError(t, err)
	assert.Equal(t, tr, got)
}

func TestTrackerVelocityRoundTrip(t *testing.T) {
	tr := &wire.TrackerVelocity{
		Sensor:  1,
		Vel:     wire.Vec3{0.1, 0.2, 0.3},
		VelQuat: wire.Quat{1, 0, 0, 0},
	}
	body := wire.EncodeTrackerVelocity(tr)
	got, err := wire.DecodeTrackerVelocity(body)
	require.NoError(t, err)
	assert.Equal(t, tr, got)
}

func TestTrackerAccelerationRoundTrip(t *testing.T) {
	tr := &wire.TrackerAcceleration{
		Sensor:    0,
		Acc:       wire.Vec3{9.8, 0, 0},
		AccQuat:   wire.Quat{1, 0, 0, 0},
		AccQuatDt: 0.016,
	}
	body := wire.EncodeTrackerAcceleration(tr)
	got, err := wire.DecodeTrackerAcceleration(body)
	require.NoError(t, err)
	assert.Equal(t, tr, got)
}

func TestUDPDescriptionRejectsNonIPHost(t *testing.T) {
	c := wire.NewWriteCursor()
	c.WriteNulTerminated([]byte("not-an-ip"))
	_, err := wire.DecodeUDPDescription(c.Bytes())
	require.ErrorIs(t, err, wire.ErrBadPayload)
}

func TestUDPPortFromSenderRejectsOutOfRange(t *testing.T) {
	_, err := wire.UDPPortFromSender(-1)
	require.ErrorIs(t, err, wire.ErrBadPayload)
	_, err = wire.UDPPortFromSender(70000)
	require.ErrorIs(t, err, wire.ErrBadPayload)
}

func TestClassOfServiceRouting(t *testing.T) {
	assert.True(t, wire.ClassReliable.Reliable())
	assert.False(t, wire.ClassReliable.LowLatency())
	assert.True(t, wire.ClassLowLatency.LowLatency())
	assert.False(t, wire.ClassLowLatency.Reliable())
}
