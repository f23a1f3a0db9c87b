package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestMissingFields(t *testing.T) {
	cases := []struct {
		name    string
		msg     Message
		missing []string
	}{
		{
			name:    "empty envelope",
			msg:     Message{},
			missing: []string{"id", "type", "vehicleId"},
		},
		{
			name:    "connect without jobs",
			msg:     Message{ID: 1, Type: MessageConnect, VehicleID: "V1"},
			missing: []string{"jobsAvailable"},
		},
		{
			name: "connect complete",
			msg:  Message{ID: 1, Type: MessageConnect, VehicleID: "V1", JobsAvailable: intPtr(2)},
		},
		{
			name:    "ack without references",
			msg:     Message{ID: 2, Type: MessageAck, VehicleID: "V1"},
			missing: []string{"ackId", "ackType"},
		},
		{
			name: "ack complete",
			msg:  Message{ID: 2, Type: MessageAck, VehicleID: "V1", AckID: int64Ptr(7), AckType: MessageStart},
		},
		{
			name:    "poi without coordinates",
			msg:     Message{ID: 3, Type: MessagePOI, VehicleID: "V1", Lat: floatPtr(48.1)},
			missing: []string{"lon"},
		},
		{
			name:    "complete without payload",
			msg:     Message{ID: 4, Type: MessageComplete, VehicleID: "V1"},
			missing: []string{"missionData"},
		},
		{
			name: "update has no extra requirements",
			msg:  Message{ID: 5, Type: MessageUpdate, VehicleID: "V1"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.missing, tc.msg.MissingFields())
		})
	}
}

func TestKnownTypes(t *testing.T) {
	for _, mt := range []MessageType{
		MessageConnect, MessageUpdate, MessagePOI, MessageComplete,
		MessageAck, MessageBad, MessageStop, MessageStart,
	} {
		assert.True(t, mt.Known(), string(mt))
	}
	assert.False(t, MessageType("TELEPORT").Known())
	assert.False(t, MessageType("").Known())
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"id": 1,`))
	require.Error(t, err)
}

func TestEncodeDecodeEnvelope(t *testing.T) {
	in := Message{
		ID:        42,
		SourceID:  "ground-control",
		TargetID:  "V1",
		Type:      MessageStart,
		Time:      1700000000000,
		VehicleID: "V1",
	}
	raw, err := in.Encode()
	require.NoError(t, err)
	out, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestIDClockMonotonic(t *testing.T) {
	frozen := time.UnixMilli(1700000000000)
	clock := NewIDClockAt(func() time.Time { return frozen })

	first := clock.Next()
	require.Equal(t, frozen.UnixMilli(), first)
	// A stalled wall clock still yields strictly increasing ids.
	second := clock.Next()
	third := clock.Next()
	assert.Equal(t, first+1, second)
	assert.Equal(t, second+1, third)

	frozen = frozen.Add(5 * time.Second)
	assert.Equal(t, frozen.UnixMilli(), clock.Next())
}

func TestApplyUpdate(t *testing.T) {
	v := Vehicle{ID: "V1", Status: StatusWaiting, Battery: 80}
	v.ApplyUpdate(&Message{Status: "SURVEYING", Lat: floatPtr(48.85), Lon: floatPtr(2.35)})
	assert.Equal(t, VehicleStatus("SURVEYING"), v.Status)
	assert.Equal(t, 48.85, v.Lat)
	assert.Equal(t, 2.35, v.Lon)
	// Absent fields stay untouched.
	assert.Equal(t, 80.0, v.Battery)

	v.ApplyUpdate(&Message{Battery: floatPtr(61.5)})
	assert.Equal(t, VehicleStatus("SURVEYING"), v.Status)
	assert.Equal(t, 61.5, v.Battery)
}

func TestContactDeadline(t *testing.T) {
	now := time.Now()
	v := Vehicle{ContactTimeout: 30 * time.Second}
	v.Touch(now)
	assert.Equal(t, now.Add(30*time.Second), v.ContactDeadline())
}
