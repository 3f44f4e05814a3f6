package codec

import (
	iface "ObstacleVisServer/interface"
	"ObstacleVisServer/typemap"
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	detectionColumns = 18
	// Lines are kept once type through theta parsed; score and the two
	// truncation columns may be missing and stay zero.
	minDetectionFields = 15
)

func (c *Codec) LoadDetections(path string) ([]*iface.VisualObject, error) {
	objs, _, err := c.Load(FormatDetection, path)
	return objs, err
}

// ReadDetections parses one record per line. Fields are scanned left to right
// and scanning stops at the first token that is not a number.
func (c *Codec) ReadDetections(r io.Reader) ([]*iface.VisualObject, Stats, error) {
	var (
		objs  []*iface.VisualObject
		stats Stats
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		obj, err := c.parseDetection(fields)
		if err != nil {
			stats.Skipped++
			continue
		}
		objs = append(objs, obj)
		stats.Accepted++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("%w: read: %w", ErrIO, err)
	}
	return objs, stats, nil
}

func (c *Codec) parseDetection(fields []string) (*iface.VisualObject, error) {
	var v [detectionColumns - 1]float64
	scanned := 1
	for i := 1; i < len(fields) && i < detectionColumns; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			break
		}
		v[i-1] = f
		scanned++
	}
	if scanned < minDetectionFields {
		return nil, fmt.Errorf("%w: %d fields, need %d", ErrMalformedRecord, scanned, minDetectionFields)
	}

	// v[0] and v[1] are unused columns.
	obj := &iface.VisualObject{
		Alpha:               v[2],
		Height:              v[7],
		Width:               v[8],
		Length:              v[9],
		Theta:               v[13],
		TruncatedVertical:   v[15],
		TruncatedHorizontal: v[16],
	}
	obj.Center.X, obj.Center.Y, obj.Center.Z = v[10], v[11], v[12]

	x1, y1, x2, y2 := v[3], v[4], v[5], v[6]
	obj.UpperLeft.X = x1
	if !(x1 > 0) {
		obj.UpperLeft.X = 0
	}
	obj.UpperLeft.Y = y1
	if !(y1 > 0) {
		obj.UpperLeft.Y = 0
	}
	obj.LowerRight.X = x2
	if !(x2 < c.Frame.Width) {
		obj.LowerRight.X = c.Frame.Width
	}
	obj.LowerRight.Y = y2
	if !(y2 < c.Frame.Height) {
		obj.LowerRight.Y = c.Frame.Height
	}

	obj.SetCategory(typemap.CategoryFromLabel(fields[0]), v[14])
	return obj, nil
}

func (c *Codec) SaveDetections(path string, objs []*iface.VisualObject) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %w", ErrIO, path, cerr)
		}
	}()
	return c.WriteDetections(f, objs)
}

// WriteDetections writes 16 columns per record: the truncation columns
// accepted by ReadDetections are not written.
func (c *Codec) WriteDetections(w io.Writer, objs []*iface.VisualObject) error {
	bw := bufio.NewWriter(w)
	for _, o := range objs {
		if o == nil {
			continue
		}
		_, err := fmt.Fprintf(bw,
			"%s %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f %.2f\n",
			typemap.LabelFromCategory(o.Category), 0.0, 0.0, o.Alpha,
			o.UpperLeft.X, o.UpperLeft.Y, o.LowerRight.X, o.LowerRight.Y,
			o.Height, o.Width, o.Length,
			o.Center.X, o.Center.Y, o.Center.Z,
			o.Theta, o.Score)
		if err != nil {
			return fmt.Errorf("%w: write: %w", ErrIO, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrIO, err)
	}
	return nil
}
