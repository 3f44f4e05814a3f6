package engine

import (
	"ObstacleVisServer/codec"
	iface "ObstacleVisServer/interface"
	"ObstacleVisServer/logger"
	"ObstacleVisServer/monitor"
	"ObstacleVisServer/planning"
	"ObstacleVisServer/render"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Annotator overlays detections and ground truth on camera frames. Detection
// boxes get labels above them; ground truth gets labels below its box so both
// sets can be compared on the same image.
type Annotator struct {
	mu       sync.Mutex
	State    int
	frame    iface.Frame
	codec    *codec.Codec
	renderer *render.Renderer
	planning planning.Params
}

// FromConfig returns a registered and configured annotator.
func FromConfig(cfg iface.EngineConfig) (*Annotator, error) {
	a := &Annotator{}
	a.New()
	if err := a.Configure(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Annotator) New() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.State = REGISTERED
	return true
}

func (a *Annotator) Configure(cfg iface.EngineConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.State {
	case UNREGISTERED:
		return ErrNotRegistered
	case BUSY:
		return ErrBusy
	}
	a.codec = codec.New(cfg.Frame)
	a.frame = a.codec.Frame
	a.renderer = render.New(cfg.FontScale)
	a.planning = planning.DefaultParams()
	if cfg.Horizon > 0 {
		a.planning.DecisionHorizon = cfg.Horizon
	}
	if cfg.Lateral > 0 {
		a.planning.LateralEnterLaneThreshold = cfg.Lateral
	}
	a.State = IDLE
	logger.Named("engine").Info("annotator configured",
		zap.Float64("width", a.frame.Width),
		zap.Float64("height", a.frame.Height),
		zap.Float64("fontScale", a.renderer.FontScale()))
	return nil
}

func (a *Annotator) CheckConfig() iface.EngineConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.renderer == nil {
		return iface.EngineConfig{}
	}
	return iface.EngineConfig{
		Frame:     a.frame,
		FontScale: a.renderer.FontScale(),
		Horizon:   a.planning.DecisionHorizon,
		Lateral:   a.planning.LateralEnterLaneThreshold,
	}
}

// Codec returns the codec bound to the configured frame, or nil before
// Configure.
func (a *Annotator) Codec() *codec.Codec {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.codec
}

func (a *Annotator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.codec = nil
	a.renderer = nil
	a.planning = planning.Params{}
	a.frame = iface.Frame{}
	a.State = UNREGISTERED
}

func (a *Annotator) acquire() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.State {
	case UNREGISTERED:
		return ErrNotRegistered
	case REGISTERED:
		return ErrNotConfigured
	case BUSY:
		return ErrBusy
	}
	a.State = BUSY
	return nil
}

func (a *Annotator) release() {
	a.mu.Lock()
	if a.State == BUSY {
		a.State = IDLE
	}
	a.mu.Unlock()
}

func (a *Annotator) Annotate(canvas iface.Canvas, detections []*iface.VisualObject, groundTruth []*iface.VisualObject) iface.RetData {
	if err := a.acquire(); err != nil {
		return iface.RetData{Success: false, Data: err.Error()}
	}
	defer a.release()

	a.renderer.DrawBoxes(detections, canvas)
	a.renderer.DrawLabelsBelow(groundTruth, canvas)
	return iface.RetData{Success: true, Data: Report{
		Detections:  a.planning.Summarize(detections),
		GroundTruth: a.planning.Summarize(groundTruth),
	}}
}

// AnnotateFiles reads an image, overlays the annotation files that are given
// and writes the result to outPath. detPath and gtPath may be empty.
func (a *Annotator) AnnotateFiles(imagePath, detPath, gtPath, outPath string) (Report, error) {
	c := a.Codec()
	if c == nil {
		return Report{}, ErrNotConfigured
	}
	detections, err := load(c, codec.FormatDetection, detPath)
	if err != nil {
		return Report{}, err
	}
	groundTruth, err := load(c, codec.FormatGroundTruth, gtPath)
	if err != nil {
		return Report{}, err
	}

	img, err := render.ReadImage(imagePath)
	if err != nil {
		return Report{}, err
	}
	defer img.Close()

	ret := a.Annotate(render.NewMatCanvas(&img), detections, groundTruth)
	if !ret.Success {
		return Report{}, fmt.Errorf("annotate %s: %v", imagePath, ret.Data)
	}
	if err := render.WriteImage(outPath, img); err != nil {
		return Report{}, err
	}
	monitor.ObserveRender()
	logger.Named("engine").Info("annotated image",
		zap.String("image", imagePath),
		zap.String("output", outPath),
		zap.Int("detections", len(detections)),
		zap.Int("groundTruth", len(groundTruth)))
	return ret.Data.(Report), nil
}

func load(c *codec.Codec, format codec.Format, path string) ([]*iface.VisualObject, error) {
	if path == "" {
		return nil, nil
	}
	objs, stats, err := c.Load(format, path)
	if err != nil {
		return nil, err
	}
	monitor.ObserveLoad(format.String(), stats.Accepted, stats.Filtered+stats.Skipped)
	return objs, nil
}

func (a *Annotator) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fmt.Sprintf("Annotator(%s)", stateName(a.State))
}
