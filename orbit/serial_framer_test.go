package orbit

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFramerDecodesValidFrame(t *testing.T) {
	f := NewFramer(strings.NewReader("garbage before frame STime 100 X 200 Y 300 Z 400E"))
	s, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, RawSample{TimeMS: 100, X: 200, Y: 300, Z: 400}, s)
}

func TestFramerCaseInsensitiveAndSingleSeparator(t *testing.T) {
	// Note: the literal word must keep its lowercase 'e' (as a real
	// sensor frame does) because the framer scans for the uppercase 'E'
	// end-of-frame byte literally, before the body is ever regex-matched.
	f := NewFramer(strings.NewReader("Stime-1_x-2:y-3.z-4E"))
	s, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, RawSample{TimeMS: 1, X: 2, Y: 3, Z: 4}, s)
}

func TestFramerSkipsGarbageBeforeStart(t *testing.T) {
	f := NewFramer(strings.NewReader("garbage-before\x00\x01SGARBAGE-MID-NOT-MATCHINGESTime 5 X 6 Y 7 Z 8E"))
	s, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, RawSample{TimeMS: 5, X: 6, Y: 7, Z: 8}, s)
}

func TestFramerResynchronizesAfterMalformedFrame(t *testing.T) {
	f := NewFramer(strings.NewReader("Snot a sample at allESTime 9 X 10 Y 11 Z 12E"))
	s, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, RawSample{TimeMS: 9, X: 10, Y: 11, Z: 12}, s)
}

func TestFramerPropagatesReadError(t *testing.T) {
	f := NewFramer(iotest_errReader{})
	_, err := f.Next()
	assert.Error(t, err)
}

type iotest_errReader struct{}

func (iotest_errReader) Read(p []byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestFramerNoPartialFrameStateAcrossBoundary(t *testing.T) {
	// Two consecutive malformed frames followed by a valid one: no partial
	// state should leak between them.
	f := NewFramer(strings.NewReader("SbadoneESbadtwoESTime 1 X 1 Y 1 Z 1E"))
	s, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, RawSample{TimeMS: 1, X: 1, Y: 1, Z: 1}, s)
}

// TestFramerNeverMisparsesArbitraryNonFrameBytes is a property test: any
// byte stream with no 'S'...'E' substring at all (so no frame boundary
// exists) never yields a sample before exhausting the stream.
func TestFramerNeverMisparsesArbitraryNonFrameBytes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.SliceOf(rapid.SampledFrom([]byte("abcdefghijklmnopqrtuvwxyz0123456789 \t"))).Draw(rt, "raw")
		f := NewFramer(bytes.NewReader(raw))
		_, err := f.Next()
		assert.Error(rt, err, "a stream with no S/E frame must eventually exhaust and error, never fabricate a sample")
	})
}
