package clip

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCopier(t *testing.T, nativeErr error, tty bool, env map[string]string) (*Copier, *bytes.Buffer, *[]string) {
	t.Helper()
	var copied []string
	var out bytes.Buffer
	c := &Copier{
		native: func(s string) error {
			if nativeErr != nil {
				return nativeErr
			}
			copied = append(copied, s)
			return nil
		},
		tty:     &out,
		isTTY:   func() bool { return tty },
		env:     func(k string) string { return env[k] },
		tempDir: t.TempDir(),
	}
	return c, &out, &copied
}

func TestCopy_Native(t *testing.T) {
	t.Parallel()
	c, out, copied := testCopier(t, nil, true, nil)

	res, err := c.Copy("SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, MethodNative, res.Method)
	assert.Equal(t, []string{"SELECT 1"}, *copied)
	assert.Zero(t, out.Len())
}

func TestCopy_OSC52(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		env    map[string]string
		prefix string
	}{
		{"plain", nil, "\x1b]52;c;"},
		{"tmux", map[string]string{"TMUX": "/tmp/tmux-1000/default"}, "\x1bPtmux;"},
		{"screen", map[string]string{"STY": "1234.pts-0"}, "\x1bP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, out, _ := testCopier(t, errors.New("no clipboard"), true, tt.env)

			res, err := c.Copy("42")
			require.NoError(t, err)
			assert.Equal(t, MethodOSC52, res.Method)
			assert.True(t, strings.HasPrefix(out.String(), tt.prefix), "%q", out.String())
			assert.Contains(t, out.String(), base64.StdEncoding.EncodeToString([]byte("42")))
		})
	}
}

func TestCopy_FileFallback(t *testing.T) {
	t.Parallel()
	c, out, _ := testCopier(t, errors.New("no clipboard"), false, nil)

	res, err := c.Copy("answer text")
	require.NoError(t, err)
	assert.Equal(t, MethodFile, res.Method)
	assert.Zero(t, out.Len())

	data, err := os.ReadFile(res.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "answer text", string(data))
}

func TestCopy_LargeTextSkipsOSC52(t *testing.T) {
	t.Parallel()
	c, out, _ := testCopier(t, errors.New("no clipboard"), true, nil)

	res, err := c.Copy(strings.Repeat("x", osc52LimitBytes+1))
	require.NoError(t, err)
	assert.Equal(t, MethodFile, res.Method)
	assert.Zero(t, out.Len())
}

func TestCopy_Empty(t *testing.T) {
	t.Parallel()
	c, _, copied := testCopier(t, nil, true, nil)

	_, err := c.Copy("")
	assert.Error(t, err)
	assert.Empty(t, *copied)
}
