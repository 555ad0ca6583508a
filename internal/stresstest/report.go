package stresstest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// SummaryFormat is the summary line written after the latency dump
	SummaryFormat = "Response time: average %d, median %d, minimum %d, maximum %d."
	// NoSamplesLine replaces the summary when nothing was collected
	NoSamplesLine = "Response time: no samples collected."
)

// WriteReport writes one line per sample (sorted ascending, milliseconds)
// followed by the summary line. It returns the summary line that was written.
// A sink failure is returned as is; nothing is swallowed.
func WriteReport(w io.Writer, sorted []int64) (string, error) {
	line := NoSamplesLine
	summary, err := ComputeSummary(sorted)
	switch {
	case err == nil:
		line = summary.String()
	case !errors.Is(err, ErrNoSamples):
		return "", err
	}

	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 24)
	for _, v := range sorted {
		buf = strconv.AppendInt(buf[:0], v, 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return "", fmt.Errorf("failed to write latency sample: %w", err)
		}
	}
	if _, err := bw.WriteString(line + "\n"); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush report: %w", err)
	}

	return line, nil
}
