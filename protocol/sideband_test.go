package protocol_test

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tordoze/nanogit/protocol"
)

// readFrameChannels decodes buf as a sequence of pkt-lines and returns the
// channel byte (the first payload byte) of each one, in order.
func readFrameChannels(t *testing.T, buf *bytes.Buffer) []byte {
	t.Helper()
	var channels []byte
	for buf.Len() > 0 {
		lengthBytes := make([]byte, protocol.PktLineLengthSize)
		_, err := buf.Read(lengthBytes)
		require.NoError(t, err)

		length, err := strconv.ParseUint(string(lengthBytes), 16, 16)
		require.NoError(t, err)
		require.Greater(t, length, uint64(4))

		data := make([]byte, length-4)
		_, err = buf.Read(data)
		require.NoError(t, err)
		require.NotEmpty(t, data)
		channels = append(channels, data[0])
	}
	return channels
}

func TestSidebandWriter_WriteData_SingleFrame(t *testing.T) {
	var buf bytes.Buffer
	w := protocol.NewSidebandWriter(&buf)

	require.NoError(t, w.WriteData([]byte("hello")))

	channels := readFrameChannels(t, &buf)
	require.Equal(t, []byte{protocol.SidebandData}, channels)
}

func TestSidebandWriter_WriteData_SplitsLargePayload(t *testing.T) {
	var buf bytes.Buffer
	w := protocol.NewSidebandWriter(&buf)

	big := bytes.Repeat([]byte{'x'}, 200000)
	require.NoError(t, w.WriteData(big))

	channels := readFrameChannels(t, &buf)
	require.Greater(t, len(channels), 1)
	for _, c := range channels {
		require.Equal(t, byte(protocol.SidebandData), c)
	}
}

func TestSidebandWriter_WriteProgressAndFatal(t *testing.T) {
	var buf bytes.Buffer
	w := protocol.NewSidebandWriter(&buf)

	require.NoError(t, w.WriteProgress("50% done"))
	require.NoError(t, w.WriteFatal("disk full"))

	channels := readFrameChannels(t, &buf)
	require.Equal(t, []byte{protocol.SidebandProgress, protocol.SidebandFatal}, channels)
}
