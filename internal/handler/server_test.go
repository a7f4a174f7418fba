package handler_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"

	apiv1 "skytrack/internal/api/v1"
	"skytrack/internal/logger"
	"skytrack/internal/metrics"
	"skytrack/internal/middleware"
	"skytrack/internal/model"
	"skytrack/internal/upload"
)

func serve(t *testing.T, e *env, rl *middleware.RateLimiter, m *metrics.Metrics) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(append(apiv1.ServerOptions(), grpc.ChainUnaryInterceptor(
		middleware.Metrics(m),
		middleware.RateLimit(rl),
		middleware.Auth(e.issuer, logger.Nop()),
	))...)
	apiv1.RegisterSkyTrackServer(srv, e.h)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	t.Cleanup(rl.Close)

	opts := append(apiv1.DialOptions(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	conn, err := grpc.NewClient("passthrough:///bufnet", opts...)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func bearerCtx(tok string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
}

func TestOverTheWire(t *testing.T) {
	e := setup(t)
	m := metrics.New()
	conn := serve(t, e, middleware.NewRateLimiter(100, 100), m)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := apiv1.Call[apiv1.RegisterRequest, apiv1.Session](ctx, conn, "Register", &apiv1.RegisterRequest{
		Email: "wire@test.com", Password: "testpass123", Name: "Wire",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.AccessToken == "" || s.User.Email != "wire@test.com" {
		t.Fatalf("session: %+v", s)
	}

	if _, err := apiv1.Call[apiv1.ListRequest, apiv1.ClassList](ctx, conn, "ListClasses", &apiv1.ListRequest{}); code(err) != codes.Unauthenticated {
		t.Fatalf("no token: %v", err)
	}
	if _, err := apiv1.Call[apiv1.ListRequest, apiv1.ClassList](bearerCtx("garbage"), conn, "ListClasses", &apiv1.ListRequest{}); code(err) != codes.Unauthenticated {
		t.Fatalf("bad token: %v", err)
	}

	authed := bearerCtx(s.AccessToken)
	c, err := apiv1.Call[model.ClassFields, model.Class](authed, conn, "AddClass", &model.ClassFields{Name: "Physics"})
	if err != nil {
		t.Fatalf("add class: %v", err)
	}
	if c.OwnerUID != s.User.UID {
		t.Errorf("owner: %s", c.OwnerUID)
	}
	due := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	task, err := apiv1.Call[model.TaskFields, model.Task](authed, conn, "AddTask", &model.TaskFields{ClassID: c.ID, Title: "Problem set", DueDate: due})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if !task.DueDate.Equal(due) || task.Status != model.StatusPending {
		t.Errorf("task: %+v", task)
	}

	list, err := apiv1.Call[apiv1.ListRequest, apiv1.TaskList](authed, conn, "ListTasks", &apiv1.ListRequest{ClassID: c.ID})
	if err != nil || len(list.Tasks) != 1 {
		t.Fatalf("list tasks: %v %+v", err, list)
	}
	if _, err := apiv1.Call[apiv1.IDRequest, apiv1.Empty](authed, conn, "RemoveTask", &apiv1.IDRequest{ID: "missing"}); code(err) != codes.NotFound {
		t.Errorf("remove missing: %v", err)
	}

	if got := testutil.ToFloat64(m.RPCs.WithLabelValues("ListClasses", codes.Unauthenticated.String())); got != 2 {
		t.Errorf("unauthenticated ListClasses count: %v", got)
	}
	if got := testutil.ToFloat64(m.RPCs.WithLabelValues("AddClass", codes.OK.String())); got != 1 {
		t.Errorf("AddClass count: %v", got)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	e := setup(t)
	conn := serve(t, e, middleware.NewRateLimiter(0.001, 1), metrics.New())
	ctx := context.Background()
	req := &apiv1.LoginRequest{Email: "nobody@test.com", Password: "whatever1"}

	if _, err := apiv1.Call[apiv1.LoginRequest, apiv1.Session](ctx, conn, "Login", req); code(err) != codes.Unauthenticated {
		t.Fatalf("first login: %v", err)
	}
	if _, err := apiv1.Call[apiv1.LoginRequest, apiv1.Session](ctx, conn, "Login", req); code(err) != codes.ResourceExhausted {
		t.Fatalf("second login: %v", err)
	}
	// data calls are not throttled
	if _, err := apiv1.Call[apiv1.Empty, apiv1.DashboardResponse](ctx, conn, "Dashboard", &apiv1.Empty{}); code(err) != codes.Unauthenticated {
		t.Fatalf("dashboard: %v", err)
	}
}

func TestUploadPhotoAtSizeCap(t *testing.T) {
	e := setup(t)
	conn := serve(t, e, middleware.NewRateLimiter(100, 100), metrics.New())
	s, _ := register(t, e)
	ctx, cancel := context.WithTimeout(bearerCtx(s.AccessToken), 10*time.Second)
	defer cancel()

	data := make([]byte, upload.MaxPhotoBytes)
	copy(data, "\x89PNG\r\n\x1a\n")
	resp, err := apiv1.Call[apiv1.UploadPhotoRequest, apiv1.UploadPhotoResponse](ctx, conn, "UploadPhoto", &apiv1.UploadPhotoRequest{
		Filename: "big.png", ContentType: "image/png", Data: data,
	})
	if err != nil {
		t.Fatalf("upload at cap: %v", err)
	}
	if resp.User.PhotoURL == "" || len(e.up.got) != upload.MaxPhotoBytes {
		t.Fatalf("uploaded %d bytes, user %+v", len(e.up.got), resp.User)
	}

	data = append(data, 0)
	if _, err := apiv1.Call[apiv1.UploadPhotoRequest, apiv1.UploadPhotoResponse](ctx, conn, "UploadPhoto", &apiv1.UploadPhotoRequest{
		Filename: "big.png", ContentType: "image/png", Data: data,
	}); code(err) != codes.InvalidArgument {
		t.Fatalf("upload over cap: %v", err)
	}
}
