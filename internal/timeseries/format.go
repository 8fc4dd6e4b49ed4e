package timeseries

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/micro-nova/templog/internal/models"
)

const (
	// Header is the first line of every store file.
	Header = "timestamp;temp"
	// Delimiter separates the timestamp and value fields of a data line.
	Delimiter = ";"

	// maxLineLen bounds a valid data line; anything longer is malformed.
	maxLineLen  = 256
	readBufSize = 4096
)

// formatSample renders s as a data line without the trailing newline.
func formatSample(s models.Sample) string {
	return strconv.FormatInt(s.Timestamp, 10) + Delimiter + strconv.FormatFloat(s.Value, 'f', 2, 64)
}

// parseLine parses a data line. ok is false for the header, blank lines and
// anything that is not exactly "<integer>;<decimal>".
func parseLine(line []byte) (s models.Sample, ok bool) {
	text := strings.TrimSpace(string(line))
	if text == "" || text == Header {
		return models.Sample{}, false
	}
	tsField, valField, found := strings.Cut(text, Delimiter)
	if !found || strings.Contains(valField, Delimiter) {
		return models.Sample{}, false
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(tsField), 10, 64)
	if err != nil {
		return models.Sample{}, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(valField), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return models.Sample{}, false
	}
	return models.Sample{Timestamp: ts, Value: v}, true
}

// scanLines calls fn once per line of r with the line stripped of its
// terminator. Lines longer than maxLineLen are reported with ok=false and
// never buffered beyond readBufSize. The slice passed to fn is only valid
// for the duration of the call.
func scanLines(r io.Reader, fn func(line []byte, ok bool)) error {
	br := bufio.NewReaderSize(r, readBufSize)
	for {
		line, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if isPrefix {
			for isPrefix {
				_, isPrefix, err = br.ReadLine()
				if err == io.EOF {
					fn(nil, false)
					return nil
				}
				if err != nil {
					return err
				}
			}
			fn(nil, false)
			continue
		}
		fn(line, len(line) <= maxLineLen)
	}
}
