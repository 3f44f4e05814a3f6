package proto

import (
	"ObstacleVisServer/config"
	iface "ObstacleVisServer/interface"
	"ObstacleVisServer/logger"
	"ObstacleVisServer/render"
	"context"
	"encoding/base64"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const detLine = "car 0 0 0.1 10 10 80 60 1.5 1.8 4.2 0.5 1.0 12.0 0.2 0.9 0 0\n"

const gtLines = "Car 0 0 0.3 20 20 90 70 1.5 1.8 4.2 0.5 1.0 12.0 0.1 0.95\n" +
	"DontCare -1 -1 -99 5 5 9 9 -1 -1 -1 -1000 -1000 -1000 -10 -10\n"

type MockAnnotator struct {
	mu          sync.Mutex
	calls       int
	detections  int
	groundTruth int
	panicOnce   bool
	destroyed   bool
}

func (m *MockAnnotator) Annotate(canvas iface.Canvas, detections, groundTruth []*iface.VisualObject) iface.RetData {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOnce {
		m.panicOnce = false
		panic("mock annotate panic")
	}
	m.calls++
	m.detections = len(detections)
	m.groundTruth = len(groundTruth)
	for _, obj := range detections {
		canvas.Rectangle(obj.Bounds(), render.ColorWhite, 1)
	}
	return iface.RetData{Success: true, Data: "ok"}
}

func (m *MockAnnotator) CheckConfig() iface.EngineConfig { return iface.EngineConfig{} }

func (m *MockAnnotator) Destroy() {
	m.mu.Lock()
	m.destroyed = true
	m.mu.Unlock()
}

func startTestServer(t *testing.T, mock *MockAnnotator) (*Server, *grpc.ClientConn) {
	t.Helper()
	logger.InitNop()
	restartDelay = 10 * time.Millisecond

	cfg := config.Default()
	srv := NewServerWith(cfg, func() (iface.Annotator, error) { return mock, nil })
	require.NoError(t, srv.StartWorker(1))

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	srv.Register(gs)
	go func() { _ = gs.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		gs.Stop()
		srv.StopWorkers()
	})
	return srv, conn
}

func encodedImage(t *testing.T) string {
	t.Helper()
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer mat.Close()
	data, err := render.EncodeJPEG(mat)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(data)
}

func TestAnnotationService(t *testing.T) {
	mock := &MockAnnotator{}
	srv, conn := startTestServer(t, mock)
	client := NewAnnotationServiceClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("Test Health", func(t *testing.T) {
		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	})

	t.Run("Test ParseObjects", func(t *testing.T) {
		req, err := structpb.NewStruct(map[string]any{"format": "groundtruth", "content": gtLines})
		require.NoError(t, err)
		resp, err := client.ParseObjects(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "groundtruth", resp.Fields["format"].GetStringValue())
		assert.Equal(t, 1.0, resp.Fields["accepted"].GetNumberValue())
		assert.Equal(t, 1.0, resp.Fields["filtered"].GetNumberValue())

		objs, err := DecodeObjects(resp.Fields["objects"])
		require.NoError(t, err)
		require.Len(t, objs, 1)
		assert.Equal(t, iface.Vehicle, objs[0].Category)
		assert.Equal(t, 0.3, objs[0].Theta)
		assert.Equal(t, 0.1, objs[0].Alpha)
		assert.Equal(t, 0.95, objs[0].CategoryScores[iface.Vehicle])
		assert.Equal(t, 12.0, objs[0].Center.Z)
	})

	t.Run("Test ParseObjects Empty", func(t *testing.T) {
		req, err := structpb.NewStruct(map[string]any{"content": ""})
		require.NoError(t, err)
		resp, err := client.ParseObjects(ctx, req)
		require.NoError(t, err)
		objs, err := DecodeObjects(resp.Fields["objects"])
		require.NoError(t, err)
		assert.Empty(t, objs)
	})

	t.Run("Test ParseObjects Bad Format", func(t *testing.T) {
		req, err := structpb.NewStruct(map[string]any{"format": "xml", "content": detLine})
		require.NoError(t, err)
		_, err = client.ParseObjects(ctx, req)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("Test ClassifyLabel", func(t *testing.T) {
		resp, err := client.ClassifyLabel(ctx, wrapperspb.String("Cyclist"))
		require.NoError(t, err)
		assert.Equal(t, float64(iface.Bicycle), resp.Fields["category"].GetNumberValue())
		assert.Equal(t, "BICYCLE", resp.Fields["name"].GetStringValue())
		assert.Equal(t, "bicycle", resp.Fields["label"].GetStringValue())
	})

	t.Run("Test Render", func(t *testing.T) {
		req, err := structpb.NewStruct(map[string]any{
			"image":       "data:image/jpeg;base64," + encodedImage(t),
			"detections":  detLine,
			"groundTruth": gtLines,
		})
		require.NoError(t, err)
		resp, err := client.Render(ctx, req)
		require.NoError(t, err)

		mat, err := render.DecodeImage(resp.GetValue())
		require.NoError(t, err)
		defer mat.Close()
		assert.Equal(t, 120, mat.Rows())
		assert.Equal(t, 160, mat.Cols())

		mock.mu.Lock()
		assert.Equal(t, 1, mock.calls)
		assert.Equal(t, 1, mock.detections)
		assert.Equal(t, 1, mock.groundTruth)
		mock.mu.Unlock()
	})

	t.Run("Test Render Bad Image", func(t *testing.T) {
		req, err := structpb.NewStruct(map[string]any{"image": "!!!"})
		require.NoError(t, err)
		_, err = client.Render(ctx, req)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		req, err = structpb.NewStruct(map[string]any{
			"image": base64.StdEncoding.EncodeToString([]byte("not an image")),
		})
		require.NoError(t, err)
		_, err = client.Render(ctx, req)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("Test Worker Restart", func(t *testing.T) {
		mock.mu.Lock()
		mock.panicOnce = true
		mock.mu.Unlock()
		req, err := structpb.NewStruct(map[string]any{"image": encodedImage(t)})
		require.NoError(t, err)
		_, err = client.Render(ctx, req)
		assert.Equal(t, codes.Internal, status.Code(err))

		_, err = client.Render(ctx, req)
		assert.NoError(t, err)
	})

	t.Run("Test Shutdown", func(t *testing.T) {
		_, err := client.Shutdown(ctx, &emptypb.Empty{})
		require.NoError(t, err)
		_, err = client.Shutdown(ctx, &emptypb.Empty{})
		require.NoError(t, err)
		select {
		case <-srv.CloseChannel():
		case <-time.After(time.Second):
			t.Fatal("CloseChannel was not closed")
		}
	})

	t.Run("Test Stop Workers", func(t *testing.T) {
		srv.StopWorkers()
		require.Eventually(t, func() bool {
			mock.mu.Lock()
			defer mock.mu.Unlock()
			return mock.destroyed
		}, time.Second, 10*time.Millisecond)

		req, err := structpb.NewStruct(map[string]any{"image": encodedImage(t)})
		require.NoError(t, err)
		_, err = client.Render(ctx, req)
		assert.Equal(t, codes.Unavailable, status.Code(err))
	})
}

func TestObjectsConversion(t *testing.T) {
	obj := &iface.VisualObject{ID: 3, UpperLeft: iface.Point2D{X: 1.5, Y: 2}, Score: 0.25}
	obj.SetCategory(iface.Pedestrian, 0.25)
	v, err := EncodeObjects([]*iface.VisualObject{obj})
	require.NoError(t, err)
	require.Len(t, v.GetListValue().GetValues(), 1)

	back, err := DecodeObjects(v)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, *obj, *back[0])

	v, err = EncodeObjects(nil)
	require.NoError(t, err)
	assert.NotNil(t, v.GetListValue())
}
