package iolib

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteFull(t *testing.T) {
	data := []byte("Hello, World!")
	var buf bytes.Buffer

	written, err := WriteFull(&buf, data)
	assert.NoError(t, err)
	assert.Equal(t, uint(len(data)), written)
	assert.Equal(t, data, buf.Bytes())
}

// shortWriter accepts at most limit bytes per Write.
type shortWriter struct {
	buf   bytes.Buffer
	limit int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		p = p[:w.limit]
	}
	return w.buf.Write(p)
}

func TestWriteFullShortWrites(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\n\r\n")

	t.Run("retries until done", func(t *testing.T) {
		w := &shortWriter{limit: 3}
		written, err := WriteFull(w, data)
		assert.NoError(t, err)
		assert.Equal(t, uint(len(data)), written)
		assert.Equal(t, data, w.buf.Bytes())
	})

	t.Run("zero progress", func(t *testing.T) {
		w := &shortWriter{limit: 0}
		written, err := WriteFull(w, data)
		assert.ErrorIs(t, err, io.ErrShortWrite)
		assert.Zero(t, written)
	})
}
