package api

import (
	"ObstacleVisServer/codec"
	"ObstacleVisServer/config"
	"ObstacleVisServer/engine"
	iface "ObstacleVisServer/interface"
	"ObstacleVisServer/logger"
	"ObstacleVisServer/monitor"
	"ObstacleVisServer/render"
	"ObstacleVisServer/typemap"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RenderIDHeader = "X-Render-ID"
	maxUploadBytes = 32 << 20
)

type handler struct {
	cfg   config.Config
	codec *codec.Codec
	// Idle annotators. A request takes one for the duration of a render.
	pool chan *engine.Annotator
	log  *zap.Logger
}

type classifyRequest struct {
	Label string `json:"label" binding:"required"`
}

type category struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

type formatRequest struct {
	Objects []*iface.VisualObject `json:"objects"`
}

// NewRouter builds the HTTP API with one annotator per configured worker.
func NewRouter(cfg config.Config) (*gin.Engine, error) {
	workers := cfg.WorkersNum
	if workers <= 0 {
		workers = 1
	}
	h := &handler{
		cfg:   cfg,
		codec: codec.New(cfg.Frame),
		pool:  make(chan *engine.Annotator, workers),
		log:   logger.Named("api"),
	}
	for i := 0; i < workers; i++ {
		a, err := engine.FromConfig(cfg.EngineConfig())
		if err != nil {
			return nil, err
		}
		h.pool <- a
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog)
	r.MaxMultipartMemory = maxUploadBytes
	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/api/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": h.cfg})
	})
	r.GET("/api/categories", h.categories)
	r.POST("/api/classify", h.classify)
	r.POST("/api/objects/parse", h.parseObjects)
	r.POST("/api/objects/format", h.formatObjects)
	r.POST("/api/render", h.render)
	return r, nil
}

func (h *handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	code := c.Writer.Status()
	monitor.HTTPTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	h.log.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("route", route),
		zap.Int("status", code),
		zap.Duration("latency", time.Since(start)))
}

func (h *handler) categories(c *gin.Context) {
	categories := make([]category, 0, iface.NumCategories)
	for i := 0; i < iface.NumCategories; i++ {
		cat := iface.Category(i)
		categories = append(categories, category{ID: i, Name: cat.String(), Label: typemap.LabelFromCategory(cat)})
	}
	c.JSON(http.StatusOK, gin.H{"data": categories, "aliases": typemap.Aliases()})
}

func (h *handler) classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat := typemap.CategoryFromLabel(req.Label)
	c.JSON(http.StatusOK, gin.H{"data": category{ID: int(cat), Name: cat.String(), Label: typemap.LabelFromCategory(cat)}})
}

func (h *handler) read(format codec.Format, r io.Reader) ([]*iface.VisualObject, codec.Stats, error) {
	objs, stats, err := h.codec.Read(format, r)
	if err != nil {
		return nil, stats, err
	}
	monitor.ObserveLoad(format.String(), stats.Accepted, stats.Filtered+stats.Skipped)
	return objs, stats, nil
}

func (h *handler) parseObjects(c *gin.Context) {
	format, err := codec.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	objs, stats, err := h.read(format, http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if objs == nil {
		objs = []*iface.VisualObject{}
	}
	c.JSON(http.StatusOK, gin.H{"data": objs, "format": format.String(), "stats": stats})
}

func (h *handler) formatObjects(c *gin.Context) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var buf bytes.Buffer
	if err := h.codec.WriteDetections(&buf, req.Objects); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

// formObjects reads an optional annotation file from the multipart form.
func (h *handler) formObjects(c *gin.Context, field string, format codec.Format) ([]*iface.VisualObject, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	objs, _, err := h.read(format, f)
	return objs, err
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *handler) render(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image upload failed: " + err.Error()})
		return
	}
	data, err := readFormFile(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	detections, err := h.formObjects(c, "detections", codec.FormatDetection)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "detections: " + err.Error()})
		return
	}
	groundTruth, err := h.formObjects(c, "groundTruth", codec.FormatGroundTruth)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "groundTruth: " + err.Error()})
		return
	}

	img, err := render.DecodeImage(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image: " + err.Error()})
		return
	}
	defer img.Close()

	var annotator *engine.Annotator
	select {
	case annotator = <-h.pool:
	case <-c.Request.Context().Done():
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled while waiting for a worker"})
		return
	}
	ret := annotator.Annotate(render.NewMatCanvas(&img), detections, groundTruth)
	h.pool <- annotator
	if !ret.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprint(ret.Data)})
		return
	}
	out, err := render.EncodeJPEG(img)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	monitor.ObserveRender()

	id := uuid.NewString()
	if h.cfg.RenderDir != "" {
		path := filepath.Join(h.cfg.RenderDir, id+".jpg")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			h.log.Error("failed to save rendered image", zap.String("path", path), zap.Error(err))
		}
	}
	h.log.Info("rendered image", zap.String("id", id),
		zap.Int("detections", len(detections)), zap.Int("groundTruth", len(groundTruth)))
	c.Header(RenderIDHeader, id)
	c.Data(http.StatusOK, "image/jpeg", out)
}
