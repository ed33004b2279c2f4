package frameio

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/LdDl/sot-go/sot"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// CSVSink writes one ';' separated row per presented frame
type CSVSink struct {
	writer *csv.Writer
	header bool
}

// NewCSVSink creates sink writing to w. Call Flush when the session is over.
func NewCSVSink(w io.Writer) *CSVSink {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	return &CSVSink{
		writer: writer,
	}
}

// Present writes annotation as a row. Frames without box leave box columns empty
func (sink *CSVSink) Present(frame *sot.Frame, annotation sot.Annotation) error {
	if !sink.header {
		err := sink.writer.Write([]string{"session_id", "frame", "state", "label", "x", "y", "width", "height", "score"})
		if err != nil {
			return errors.Wrap(err, "Can't write CSV header")
		}
		sink.header = true
	}
	row := []string{
		annotation.SessionID.String(),
		fmt.Sprintf("%d", annotation.FrameIndex),
		annotation.State.String(),
		annotation.Label,
		"", "", "", "",
		fmt.Sprintf("%f", annotation.Score),
	}
	if annotation.HasBBox {
		row[4] = fmt.Sprintf("%f", annotation.BBox.X)
		row[5] = fmt.Sprintf("%f", annotation.BBox.Y)
		row[6] = fmt.Sprintf("%f", annotation.BBox.Width)
		row[7] = fmt.Sprintf("%f", annotation.BBox.Height)
	}
	if err := sink.writer.Write(row); err != nil {
		return errors.Wrap(err, "Can't write CSV row")
	}
	return nil
}

// Flush writes buffered rows to underlying writer
func (sink *CSVSink) Flush() error {
	sink.writer.Flush()
	return sink.writer.Error()
}

// LogSink reports every annotation to a logger at debug level
type LogSink struct {
	Logger zerolog.Logger
}

// Present logs annotation
func (sink LogSink) Present(frame *sot.Frame, annotation sot.Annotation) error {
	event := sink.Logger.Debug().
		Int("frame", annotation.FrameIndex).
		Str("label", annotation.Label).
		Float64("score", annotation.Score)
	if annotation.HasBBox {
		event = event.
			Float64("x", annotation.BBox.X).
			Float64("y", annotation.BBox.Y).
			Float64("width", annotation.BBox.Width).
			Float64("height", annotation.BBox.Height)
	}
	event.Msg("frame processed")
	return nil
}

// MultiSink presents every frame to each sink in order and stops at the first error
type MultiSink []sot.FrameSink

// Present forwards to every sink
func (sinks MultiSink) Present(frame *sot.Frame, annotation sot.Annotation) error {
	for _, sink := range sinks {
		if err := sink.Present(frame, annotation); err != nil {
			return err
		}
	}
	return nil
}
