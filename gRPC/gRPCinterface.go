package proto

import (
	"ObstacleVisServer/codec"
	"ObstacleVisServer/config"
	"ObstacleVisServer/engine"
	iface "ObstacleVisServer/interface"
	"ObstacleVisServer/logger"
	"ObstacleVisServer/monitor"
	"ObstacleVisServer/render"
	"ObstacleVisServer/typemap"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type JobPackage struct {
	ID          string
	Image       []byte
	Detections  []*iface.VisualObject
	GroundTruth []*iface.VisualObject
	Result      chan jobResult
}

type jobResult struct {
	Data []byte
	Err  error
}

// NewAnnotatorFunc builds the annotator owned by one worker.
type NewAnnotatorFunc func() (iface.Annotator, error)

var restartDelay = 1 * time.Second

type Server struct {
	codec        *codec.Codec
	newAnnotator NewAnnotatorFunc
	JobQueue     chan JobPackage
	quit         chan struct{}
	stopOnce     sync.Once
	closeOnce    sync.Once
	closeCh      chan struct{}
	log          *zap.Logger
}

// NewServer builds a server whose workers annotate with engine.Annotator.
func NewServer(cfg config.Config) *Server {
	return NewServerWith(cfg, func() (iface.Annotator, error) {
		return engine.FromConfig(cfg.EngineConfig())
	})
}

func NewServerWith(cfg config.Config, newAnnotator NewAnnotatorFunc) *Server {
	workers := cfg.WorkersNum
	if workers <= 0 {
		workers = 1
	}
	return &Server{
		codec:        codec.New(cfg.Frame),
		newAnnotator: newAnnotator,
		JobQueue:     make(chan JobPackage, workers),
		quit:         make(chan struct{}),
		closeCh:      make(chan struct{}),
		log:          logger.Named("grpc"),
	}
}

// CloseChannel is closed once a client asks the server to shut down.
func (s *Server) CloseChannel() <-chan struct{} {
	return s.closeCh
}

func (s *Server) StartWorker(workerNum int) error {
	for i := 0; i < workerNum; i++ {
		annotator, err := s.newAnnotator()
		if err != nil {
			return fmt.Errorf("worker %d: %w", i, err)
		}
		go s.runWorker(i, annotator)
	}
	return nil
}

// StopWorkers makes every worker destroy its annotator and exit. Pending
// Render calls fail with codes.Unavailable.
func (s *Server) StopWorkers() {
	s.stopOnce.Do(func() { close(s.quit) })
}

func (s *Server) runWorker(workerID int, annotator iface.Annotator) {
	var current *JobPackage
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("worker panic, restarting", zap.Int("worker", workerID), zap.Any("panic", r), zap.Duration("delay", restartDelay))
			if current != nil {
				current.Result <- jobResult{Err: fmt.Errorf("worker %d panic: %v", workerID, r)}
			}
			time.Sleep(restartDelay)
			go s.runWorker(workerID, annotator)
		}
	}()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	s.log.Debug("worker created", zap.Int("worker", workerID))
	for {
		select {
		case <-s.quit:
			annotator.Destroy()
			s.log.Debug("worker stopped", zap.Int("worker", workerID))
			return
		case job := <-s.JobQueue:
			current = &job
			job.Result <- s.process(annotator, job)
			current = nil
		}
	}
}

func (s *Server) process(annotator iface.Annotator, job JobPackage) jobResult {
	img, err := render.DecodeImage(job.Image)
	if err != nil {
		return jobResult{Err: err}
	}
	defer img.Close()
	ret := annotator.Annotate(render.NewMatCanvas(&img), job.Detections, job.GroundTruth)
	if !ret.Success {
		return jobResult{Err: fmt.Errorf("annotate: %v", ret.Data)}
	}
	data, err := render.EncodeJPEG(img)
	if err != nil {
		return jobResult{Err: err}
	}
	monitor.ObserveRender()
	return jobResult{Data: data}
}

func (s *Server) parse(format codec.Format, content string) ([]*iface.VisualObject, codec.Stats, error) {
	objs, stats, err := s.codec.Read(format, strings.NewReader(content))
	if err != nil {
		return nil, stats, err
	}
	monitor.ObserveLoad(format.String(), stats.Accepted, stats.Filtered+stats.Skipped)
	return objs, stats, nil
}

func (s *Server) ParseObjects(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	monitor.GRPCTotal.Inc()
	fields := req.GetFields()
	format, err := codec.ParseFormat(fields["format"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	objs, stats, err := s.parse(format, fields["content"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	objects, err := EncodeObjects(objs)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	resp, err := structpb.NewStruct(map[string]any{
		"format":   format.String(),
		"accepted": stats.Accepted,
		"filtered": stats.Filtered,
		"skipped":  stats.Skipped,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	resp.Fields["objects"] = objects
	return resp, nil
}

func (s *Server) ClassifyLabel(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	monitor.GRPCTotal.Inc()
	category := typemap.CategoryFromLabel(req.GetValue())
	resp, err := structpb.NewStruct(map[string]any{
		"category": int(category),
		"name":     category.String(),
		"label":    typemap.LabelFromCategory(category),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (s *Server) Render(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	monitor.GRPCTotal.Inc()
	fields := req.GetFields()
	image, err := base64.StdEncoding.DecodeString(render.StripDataURL(fields["image"].GetStringValue()))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "image: %v", err)
	}
	detections, _, err := s.parse(codec.FormatDetection, fields["detections"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	groundTruth, _, err := s.parse(codec.FormatGroundTruth, fields["groundTruth"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	job := JobPackage{
		ID:          uuid.NewString(),
		Image:       image,
		Detections:  detections,
		GroundTruth: groundTruth,
		Result:      make(chan jobResult, 1),
	}
	select {
	case s.JobQueue <- job:
	case <-s.quit:
		return nil, status.Error(codes.Unavailable, "server is shutting down")
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}

	var result jobResult
	select {
	case result = <-job.Result:
	case <-s.quit:
		return nil, status.Error(codes.Unavailable, "server is shutting down")
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}
	if result.Err != nil {
		s.log.Error("render failed", zap.String("job", job.ID), zap.Error(result.Err))
		if errors.Is(result.Err, render.ErrEmptyImage) {
			return nil, status.Error(codes.InvalidArgument, result.Err.Error())
		}
		return nil, status.Error(codes.Internal, result.Err.Error())
	}
	s.log.Info("rendered image", zap.String("job", job.ID),
		zap.Int("detections", len(detections)), zap.Int("groundTruth", len(groundTruth)))
	return wrapperspb.Bytes(result.Data), nil
}

func (s *Server) Shutdown(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	monitor.GRPCTotal.Inc()
	s.closeOnce.Do(func() {
		s.log.Warn("shutdown requested")
		close(s.closeCh)
	})
	return &emptypb.Empty{}, nil
}

// EncodeObjects converts records to a protobuf list through their JSON form.
func EncodeObjects(objs []*iface.VisualObject) (*structpb.Value, error) {
	if objs == nil {
		objs = []*iface.VisualObject{}
	}
	b, err := json.Marshal(objs)
	if err != nil {
		return nil, err
	}
	v := &structpb.Value{}
	if err := protojson.Unmarshal(b, v); err != nil {
		return nil, err
	}
	return v, nil
}

func DecodeObjects(v *structpb.Value) ([]*iface.VisualObject, error) {
	b, err := protojson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var objs []*iface.VisualObject
	if err := json.Unmarshal(b, &objs); err != nil {
		return nil, err
	}
	return objs, nil
}

// Register adds the annotation and health services to gs.
func (s *Server) Register(gs *grpc.Server) *health.Server {
	RegisterAnnotationServiceServer(gs, s)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return hs
}

func (s *Server) Serve(lis net.Listener) *grpc.Server {
	gs := grpc.NewServer()
	s.Register(gs)
	go func() {
		s.log.Info("server listening", zap.String("addr", lis.Addr().String()))
		if err := gs.Serve(lis); err != nil {
			s.log.Error("failed to serve gRPC server", zap.Error(err))
		}
	}()
	return gs
}

func StartGRPCServer(s *Server, port int) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}
	return s.Serve(lis), nil
}
