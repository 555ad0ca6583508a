package stresstest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct {
	err error
}

func (w failingWriter) Write([]byte) (int, error) {
	return 0, w.err
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer

	line, err := WriteReport(&buf, []int64{1, 2, 2, 9})
	require.NoError(t, err)

	assert.Equal(t, "Response time: average 3, median 2, minimum 1, maximum 9.", line)
	assert.Equal(t, "1\n2\n2\n9\n"+line+"\n", buf.String())
}

func TestWriteReport_NoSamples(t *testing.T) {
	var buf bytes.Buffer

	line, err := WriteReport(&buf, nil)
	require.NoError(t, err)

	assert.Equal(t, NoSamplesLine, line)
	assert.Equal(t, NoSamplesLine+"\n", buf.String())
}

func TestWriteReport_SinkFailure(t *testing.T) {
	sinkErr := errors.New("disk full")

	_, err := WriteReport(failingWriter{err: sinkErr}, []int64{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, sinkErr)
}
