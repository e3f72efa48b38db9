package pipe

import (
	"context"
	"io"
	"testing"

	"container-monitor/transport"
	"container-monitor/transport/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PipeTestSuite struct {
	test.ConnTestSuite
}

func TestPipeTestSuite(t *testing.T) {
	suite.Run(t, new(PipeTestSuite))
}

func (s *PipeTestSuite) SetupTest() {
	s.ConnTestSuite.SetupTest()
	s.C1, s.C2 = Pair()
}

func TestScriptedConn(t *testing.T) {
	conn := NewScripted([]byte("AB"), []byte("CDE"))

	buf := make([]byte, 2)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "AB", string(buf[:n]))

	// A delivery larger than the buffer is handed out over several reads.
	n, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "CD", string(buf[:n]))
	n, err = conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "E", string(buf[:n]))

	n, err = conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, n)
	assert.Equal(t, 4, conn.Reads())

	require.NoError(t, conn.Close())
	assert.True(t, conn.Closed())

	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, transport.ErrConnClosed)
	_, err = conn.Write(buf)
	assert.ErrorIs(t, err, transport.ErrConnClosed)
}

func TestResponder(t *testing.T) {
	conn := NewResponder(func(request []byte) [][]byte {
		return [][]byte{[]byte("echo: "), request}
	})

	_, err := conn.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), conn.Written())
	assert.Equal(t, 2, conn.Pending())

	b, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "echo: ping", string(b))
}

func TestDialer(t *testing.T) {
	d := &Dialer{Handler: func(request []byte) [][]byte { return nil }}

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	_, err = conn.Write([]byte("hello"))
	require.NoError(t, err)

	conns := d.Conns()
	require.Len(t, conns, 1)
	assert.Equal(t, []byte("hello"), conns[0].Written())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Dial(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFragment(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		size     int
		expected []string
	}{
		{
			desc:     "even",
			input:    "ABCDEF",
			size:     2,
			expected: []string{"AB", "CD", "EF"},
		},
		{
			desc:     "remainder",
			input:    "ABCDE",
			size:     2,
			expected: []string{"AB", "CD", "E"},
		},
		{
			desc:     "one byte",
			input:    "ABC",
			size:     1,
			expected: []string{"A", "B", "C"},
		},
		{
			desc:     "empty",
			input:    "",
			size:     3,
			expected: []string{},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			got := make([]string, 0)
			for _, d := range Fragment([]byte(tc.input), tc.size) {
				got = append(got, string(d))
			}
			assert.Equal(t, tc.expected, got)
		})
	}

	assert.Panics(t, func() { Fragment([]byte("A"), 0) })
}
