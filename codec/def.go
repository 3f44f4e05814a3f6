// Package codec reads and writes camera obstacle annotations.
//
// Two line formats are supported. The detection format is produced and
// consumed by the camera detector tooling:
//
//	type trash trash alpha x1 y1 x2 y2 height width length cx cy cz theta score [trunc_v trunc_h]
//
// The ground-truth format is read only and always has 16 columns:
//
//	type f1 f2 theta x1 y1 x2 y2 height width length cx cy cz alpha score
//
// Column 3 of a ground-truth line holds the heading and column 14 the
// observation angle, the reverse of the detection format. The mapping is kept
// as is for compatibility with existing ground-truth files.
package codec

import (
	iface "ObstacleVisServer/interface"
	"ObstacleVisServer/logger"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrIO              = errors.New("annotation file I/O failed")
	ErrMalformedRecord = errors.New("malformed record")
	ErrUnknownFormat   = errors.New("unknown annotation format")
)

type Format int

const (
	FormatDetection Format = iota
	FormatGroundTruth
)

func (f Format) String() string {
	switch f {
	case FormatDetection:
		return "detection"
	case FormatGroundTruth:
		return "groundtruth"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "detection", "det", "generic":
		return FormatDetection, nil
	case "groundtruth", "gt", "ground_truth":
		return FormatGroundTruth, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Stats counts the lines of one load. Blank lines are not counted.
// Filtered lines are well formed but intentionally dropped (2D-only
// ground truth); Skipped lines are malformed.
type Stats struct {
	Accepted int `json:"accepted"`
	Filtered int `json:"filtered"`
	Skipped  int `json:"skipped"`
}

type Codec struct {
	Frame iface.Frame
}

func New(frame iface.Frame) *Codec {
	if frame.Width <= 0 || frame.Height <= 0 {
		frame = iface.DefaultFrame
	}
	return &Codec{Frame: frame}
}

var std = New(iface.DefaultFrame)

func LoadDetections(path string) ([]*iface.VisualObject, error) {
	return std.LoadDetections(path)
}

func SaveDetections(path string, objs []*iface.VisualObject) error {
	return std.SaveDetections(path, objs)
}

func LoadGroundTruth(path string) ([]*iface.VisualObject, error) {
	return std.LoadGroundTruth(path)
}

// Read dispatches to the reader of the given format.
func (c *Codec) Read(format Format, r io.Reader) ([]*iface.VisualObject, Stats, error) {
	switch format {
	case FormatDetection:
		return c.ReadDetections(r)
	case FormatGroundTruth:
		return c.ReadGroundTruth(r)
	}
	return nil, Stats{}, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
}

// Load opens path and reads it in the given format.
func (c *Codec) Load(format Format, path string) ([]*iface.VisualObject, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()
	objs, stats, err := c.Read(format, f)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", path, err)
	}
	logStats(format, path, stats)
	return objs, stats, nil
}

func logStats(format Format, path string, stats Stats) {
	log := logger.Named("codec")
	if stats.Skipped > 0 {
		log.Warn("skipped malformed annotation lines",
			zap.String("format", format.String()),
			zap.String("path", path),
			zap.Int("skipped", stats.Skipped),
			zap.Int("accepted", stats.Accepted))
		return
	}
	log.Debug("loaded annotations",
		zap.String("format", format.String()),
		zap.String("path", path),
		zap.Int("filtered", stats.Filtered),
		zap.Int("accepted", stats.Accepted))
}
