package stomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_EncodeParse(t *testing.T) {
	in := NewFrame(CmdSend, map[string]string{
		HdrDestination: "/app/chat.send",
		HdrContentType: "application/json",
	}, []byte(`{"content":"hi"}`))

	frames, err := Parse(in.Encode())
	require.NoError(t, err)
	require.Len(t, frames, 1)
	out := frames[0]
	assert.Equal(t, CmdSend, out.Command)
	assert.Equal(t, "/app/chat.send", out.Header(HdrDestination))
	assert.Equal(t, "16", out.Header(HdrContentLength))
	assert.Equal(t, `{"content":"hi"}`, string(out.Body))
}

func TestFrame_HeaderEscaping(t *testing.T) {
	in := NewFrame(CmdMessage, map[string]string{"note": "a:b\nc\\d"}, nil)
	encoded := string(in.Encode())
	assert.Contains(t, encoded, `note:a\cb\nc\\d`)

	frames, err := Parse([]byte(encoded))
	require.NoError(t, err)
	assert.Equal(t, "a:b\nc\\d", frames[0].Header("note"))
}

func TestFrame_ConnectRoundTrip(t *testing.T) {
	in := NewFrame(CmdConnect, map[string]string{HdrHost: "localhost:8080", HdrHeartBeat: "10000,10000"}, nil)
	frames, err := Parse(in.Encode())
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "localhost:8080", frames[0].Header(HdrHost))
	assert.Equal(t, "10000,10000", frames[0].Header(HdrHeartBeat))

	// 未转义的冒号按第一个冒号切分
	frames, err = Parse([]byte("CONNECTED\nserver:x:1\n\n\x00"))
	require.NoError(t, err)
	assert.Equal(t, "x:1", frames[0].Header("server"))
}

func TestFrame_EncodeRecomputesContentLength(t *testing.T) {
	in := NewFrame(CmdSend, map[string]string{HdrContentLength: "99"}, []byte("abc"))
	encoded := string(in.Encode())
	assert.Contains(t, encoded, "content-length:3\n")
	assert.NotContains(t, encoded, "99")
}

func TestParse_HeartbeatsAndMultipleFrames(t *testing.T) {
	data := []byte("\n\r\nMESSAGE\nsubscription:sub-0\n\nfirst\x00\nMESSAGE\nsubscription:sub-1\n\nsecond\x00\n")

	frames, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "first", string(frames[0].Body))
	assert.Equal(t, "sub-1", frames[1].Header(HdrSubscription))

	frames, err = Parse([]byte("\n"))
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestParse_ContentLengthAllowsNUL(t *testing.T) {
	frames, err := Parse([]byte("MESSAGE\ncontent-length:3\n\na\x00b\x00"))
	require.NoError(t, err)
	assert.Equal(t, []byte("a\x00b"), frames[0].Body)
}

func TestParse_RepeatedHeaderFirstWins(t *testing.T) {
	frames, err := Parse([]byte("MESSAGE\nfoo:1\nfoo:2\n\n\x00"))
	require.NoError(t, err)
	assert.Equal(t, "1", frames[0].Header("foo"))
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"MESSAGE\nfoo:1\n\nno terminator",
		"MESSAGE\nbadheader\n\n\x00",
		"MESSAGE\ncontent-length:10\n\nab\x00",
		"NOPE\n\n\x00",
	}
	for _, c := range cases {
		_, err := Parse([]byte(c))
		assert.ErrorIs(t, err, ErrInvalidFrame, c)
	}
}
