package codec

import (
	iface "ObstacleVisServer/interface"
	"ObstacleVisServer/typemap"
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	groundTruthColumns = 16
	// 2D-only entries carry no 3D data and are dropped.
	noDepthSentinel = "-99"
)

func (c *Codec) LoadGroundTruth(path string) ([]*iface.VisualObject, error) {
	objs, _, err := c.Load(FormatGroundTruth, path)
	return objs, err
}

// ReadGroundTruth numbers accepted records from 0 in file order. Truncation
// is not stored in the file and is estimated from how close the box comes to
// the frame border.
func (c *Codec) ReadGroundTruth(r io.Reader) ([]*iface.VisualObject, Stats, error) {
	var (
		objs  []*iface.VisualObject
		stats Stats
	)
	id := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		switch {
		case len(tokens) == 0:
			continue
		case len(tokens) != groundTruthColumns:
			stats.Skipped++
			continue
		case tokens[3] == noDepthSentinel:
			stats.Filtered++
			continue
		}
		obj, err := c.parseGroundTruth(tokens)
		if err != nil {
			stats.Skipped++
			continue
		}
		obj.ID = id
		id++
		objs = append(objs, obj)
		stats.Accepted++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("%w: read: %w", ErrIO, err)
	}
	return objs, stats, nil
}

func (c *Codec) parseGroundTruth(tokens []string) (*iface.VisualObject, error) {
	var v [groundTruthColumns]float64
	for i := 3; i < groundTruthColumns; i++ {
		f, err := strconv.ParseFloat(tokens[i], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %d: %w", ErrMalformedRecord, i, err)
		}
		v[i] = f
	}

	obj := &iface.VisualObject{
		Theta:      v[3],
		UpperLeft:  iface.Point2D{X: v[4], Y: v[5]},
		LowerRight: iface.Point2D{X: v[6], Y: v[7]},
		Height:     v[8],
		Width:      v[9],
		Length:     v[10],
		Alpha:      v[14],
	}
	obj.Center.X, obj.Center.Y, obj.Center.Z = v[11], v[12], v[13]
	obj.SetCategory(typemap.CategoryFromLabel(tokens[0]), v[15])

	m := c.Frame.EdgeMargin
	if obj.UpperLeft.X <= m || obj.LowerRight.X >= c.Frame.Width-m {
		obj.TruncatedHorizontal = 0.5
	}
	if obj.UpperLeft.Y <= m || obj.LowerRight.Y >= c.Frame.Height-m {
		obj.TruncatedVertical = 0.5
	}
	return obj, nil
}
