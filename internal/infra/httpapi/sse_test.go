package httpapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"parishd/internal/domain"
)

func TestSSETransport_OpenIdempotent(t *testing.T) {
	tr := NewSSETransport(nil, 0)

	ch1, err := tr.Open("user-m1")
	require.NoError(t, err)
	ch2, err := tr.Open("user-m1")
	require.NoError(t, err)
	require.Same(t, ch1, ch2)
	require.Equal(t, "user-m1", ch1.Name())
}

func TestSSETransport_OpenReplacesClosedChannel(t *testing.T) {
	tr := NewSSETransport(nil, 0)

	ch1, err := tr.Open("user-m1")
	require.NoError(t, err)
	require.NoError(t, ch1.Close())

	ch2, err := tr.Open("user-m1")
	require.NoError(t, err)
	require.NotSame(t, ch1, ch2)
	require.Equal(t, domain.ChannelConnecting, ch2.State())
}

func TestSSETransport_AttachMarksJoined(t *testing.T) {
	tr := NewSSETransport(nil, 0)

	ch, err := tr.Open("user-m1")
	require.NoError(t, err)
	require.Equal(t, domain.ChannelConnecting, ch.State())

	_, detach, err := tr.Attach("user-m1")
	require.NoError(t, err)
	defer detach()
	require.Equal(t, domain.ChannelJoined, ch.State())
}

func TestSSETransport_AttachUnknownChannel(t *testing.T) {
	tr := NewSSETransport(nil, 0)
	_, _, err := tr.Attach("user-nobody")
	require.ErrorIs(t, err, domain.ErrInvalidChannel)
}

func TestSSETransport_SendFansOutToAllStreams(t *testing.T) {
	tr := NewSSETransport(nil, 4)

	ch, err := tr.Open("user-m1")
	require.NoError(t, err)

	frames1, detach1, err := tr.Attach("user-m1")
	require.NoError(t, err)
	defer detach1()
	frames2, detach2, err := tr.Attach("user-m1")
	require.NoError(t, err)
	defer detach2()

	n := domain.NewNotification(domain.NotifyInfo, domain.ManualData{Message: "hi"})
	require.NoError(t, ch.Send(domain.EventNotification, n))

	for _, frames := range []<-chan Frame{frames1, frames2} {
		frame := <-frames
		require.Equal(t, domain.EventNotification, frame.Event)

		var decoded domain.Notification
		require.NoError(t, json.Unmarshal(frame.Data, &decoded))
		require.Equal(t, domain.NotifyInfo, decoded.Type)
		require.Equal(t, "hi", decoded.Message)
	}
}

func TestSSETransport_SlowStreamDropsFrames(t *testing.T) {
	tr := NewSSETransport(nil, 1)

	ch, err := tr.Open("user-m1")
	require.NoError(t, err)

	frames, detach, err := tr.Attach("user-m1")
	require.NoError(t, err)
	defer detach()

	// The buffer holds one frame; the second send must not block.
	require.NoError(t, ch.Send(domain.EventNotification, "first"))
	require.NoError(t, ch.Send(domain.EventNotification, "second"))

	frame := <-frames
	require.JSONEq(t, `"first"`, string(frame.Data))
	select {
	case extra := <-frames:
		t.Fatalf("unexpected frame %q", extra.Data)
	default:
	}
}

func TestSSETransport_DetachIdempotent(t *testing.T) {
	tr := NewSSETransport(nil, 0)

	_, err := tr.Open("user-m1")
	require.NoError(t, err)
	frames, detach, err := tr.Attach("user-m1")
	require.NoError(t, err)

	detach()
	detach()
	_, open := <-frames
	require.False(t, open)
}

func TestSSETransport_CloseEndsStreamsAndSends(t *testing.T) {
	tr := NewSSETransport(nil, 0)

	ch, err := tr.Open("user-m1")
	require.NoError(t, err)
	frames, _, err := tr.Attach("user-m1")
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	_, open := <-frames
	require.False(t, open)
	require.ErrorIs(t, ch.Send(domain.EventNotification, "late"), domain.ErrChannelClosed)

	_, _, err = tr.Attach("user-m1")
	require.ErrorIs(t, err, domain.ErrChannelClosed)
}

func TestSSETransport_SendUnmarshalablePayload(t *testing.T) {
	tr := NewSSETransport(nil, 0)
	ch, err := tr.Open("user-m1")
	require.NoError(t, err)

	require.Error(t, ch.Send(domain.EventNotification, make(chan int)))
}
