package events

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeControlEvent(t *testing.T) {
	in := ControlEvent{
		SessionID:   "6f1c2b1e-0000-4000-8000-000000000001",
		Channel:     "steering",
		Value:       -12.5,
		Display:     "Steering: -13 deg",
		Endpoint:    "http://192.168.1.5",
		TimestampNs: 1700000000000000000,
	}

	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("decoded event mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "forklift.control.steering", out.Topic())
}

func TestEncodeRejectsUnknownChannel(t *testing.T) {
	_, err := Encode(ControlEvent{Channel: "horn"})
	assert.Error(t, err)
}

func TestDecodeRejectsForeignBuffers(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = Decode([]byte(`{"type":"PROFILE_REQUEST"}`))
	assert.ErrorIs(t, err, ErrInvalidEvent)

	// Right identifier, garbage root offset.
	_, err = Decode([]byte{0xff, 0xff, 0xff, 0x7f, 'F', 'C', 'E', 'V'})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}
