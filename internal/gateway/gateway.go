// Package gateway is the HTTP JSON front of the gRPC service. Request bodies
// are forwarded untouched to the matching method, so auth, rate limiting and
// metrics run once, in the gRPC interceptors.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apiv1 "skytrack/internal/api/v1"
	"skytrack/internal/logger"
	"skytrack/internal/metrics"
	mw "skytrack/internal/middleware"
	"skytrack/internal/upload"
)

const stateCookie = "skytrack_oauth_state"

type Config struct {
	Origins []string
	// UploadDir is served at /uploads when photos are stored locally.
	UploadDir string
	RPS       float64
	Burst     int
}

type Gateway struct {
	echo    *echo.Echo
	conn    grpc.ClientConnInterface
	metrics *metrics.Metrics
	log     *logger.Logger
}

// Dial connects to the gRPC server at addr (e.g. "localhost:50051").
func Dial(addr string) (*grpc.ClientConn, error) {
	opts := append(apiv1.DialOptions(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("gateway dial: %w", err)
	}
	return conn, nil
}

func New(conn grpc.ClientConnInterface, cfg Config, m *metrics.Metrics, log *logger.Logger) *Gateway {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// X-Forwarded-For is only believed from loopback and private proxies
	e.IPExtractor = echo.ExtractIPFromXFFHeader()

	g := &Gateway{echo: e, conn: conn, metrics: m, log: log.WithComponent("gateway")}
	g.setupMiddleware(cfg)
	g.setupRoutes(cfg)
	return g
}

func (g *Gateway) Handler() http.Handler { return g.echo }

func (g *Gateway) Start(addr string) error {
	g.log.Infow("http gateway listening", "addr", addr)
	if err := g.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error { return g.echo.Shutdown(ctx) }

func (g *Gateway) setupMiddleware(cfg Config) {
	g.echo.Use(middleware.Recover())
	g.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			g.metrics.HTTP.WithLabelValues(v.Method, c.Path(), fmt.Sprint(v.Status)).Inc()
			fields := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", float64(v.Latency.Nanoseconds()) / 1e6,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				g.log.Errorw("http request failed", append(fields, "error", v.Error.Error())...)
			} else {
				g.log.Debugw("http request", fields...)
			}
			return nil
		},
	}))

	origins := cfg.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	g.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	g.echo.Use(middleware.BodyLimit("8M"))
}

func (g *Gateway) setupRoutes(cfg Config) {
	g.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	g.echo.GET("/metrics", echo.WrapHandler(g.metrics.Handler()))
	if cfg.UploadDir != "" {
		g.echo.Static(upload.URLPrefix, cfg.UploadDir)
	}

	throttle := g.throttle(cfg)
	v1 := g.echo.Group("/api/v1")
	v1.POST("/UploadPhoto/form", g.uploadForm)
	v1.POST("/:method", g.forward, throttle)

	g.echo.GET("/auth/google", g.googleStart)
	g.echo.GET("/auth/google/callback", g.googleCallback, throttle)
}

// throttle limits the sign-in methods per client address before they are
// forwarded.
func (g *Gateway) throttle(cfg Config) echo.MiddlewareFunc {
	rps, burst := cfg.RPS, cfg.Burst
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			name := c.Param("method")
			if name == "" {
				return false
			}
			return !apiv1.Throttled[apiv1.Method(name)]
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(rps), Burst: burst, ExpiresIn: 3 * time.Minute},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, errorBody{Code: "PermissionDenied", Message: "rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, _ string, err error) error {
			return c.JSON(http.StatusTooManyRequests, errorBody{Code: "ResourceExhausted", Message: "rate limit exceeded"})
		},
	})
}

func (g *Gateway) forward(c echo.Context) error {
	name := c.Param("method")
	if !apiv1.Known(name) {
		return c.JSON(http.StatusNotFound, errorBody{Code: "NotFound", Message: "unknown method " + name})
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Code: "InvalidArgument", Message: "read body failed"})
	}
	if len(body) > 0 && !json.Valid(body) {
		return c.JSON(http.StatusBadRequest, errorBody{Code: "InvalidArgument", Message: "body is not valid JSON"})
	}
	return g.invoke(c, name, body)
}

// invoke calls the method with the raw JSON body and writes the raw reply.
func (g *Gateway) invoke(c echo.Context, name string, body []byte) error {
	resp := &apiv1.Raw{}
	err := g.conn.Invoke(g.outgoing(c), apiv1.Method(name), &apiv1.Raw{Data: body}, resp, grpc.CallContentSubtype(apiv1.CodecName))
	if err != nil {
		return g.writeError(c, err)
	}
	if len(resp.Data) == 0 {
		resp.Data = []byte("{}")
	}
	return c.JSONBlob(http.StatusOK, resp.Data)
}

// forward metadata
func (g *Gateway) outgoing(c echo.Context) context.Context {
	md := metadata.MD{}
	if vals := c.Request().Header.Values(echo.HeaderAuthorization); len(vals) > 0 {
		md.Set("authorization", vals...)
	}
	md.Set(mw.ForwardedForKey, c.RealIP())
	return metadata.NewOutgoingContext(c.Request().Context(), md)
}

func (g *Gateway) writeError(c echo.Context, err error) error {
	st := status.Convert(err)
	code := httpStatus(st.Code())
	if code >= 500 {
		g.log.Warnw("grpc error", "method", c.Param("method"), "code", st.Code().String(), "message", st.Message())
	}
	return c.JSON(code, errorBody{Code: st.Code().String(), Message: st.Message()})
}

// uploadForm accepts a multipart "photo" field and forwards it as UploadPhoto.
func (g *Gateway) uploadForm(c echo.Context) error {
	fh, err := c.FormFile("photo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Code: "InvalidArgument", Message: "photo field required"})
	}
	if fh.Size > upload.MaxPhotoBytes {
		return c.JSON(http.StatusBadRequest, errorBody{Code: "InvalidArgument", Message: "photo too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Code: "InvalidArgument", Message: "open upload failed"})
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, upload.MaxPhotoBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Code: "InvalidArgument", Message: "read upload failed"})
	}

	ct := fh.Header.Get(echo.HeaderContentType)
	if ct == "" || ct == echo.MIMEOctetStream {
		ct = http.DetectContentType(data)
	}
	body, err := json.Marshal(apiv1.UploadPhotoRequest{Filename: fh.Filename, ContentType: ct, Data: data})
	if err != nil {
		return err
	}
	return g.invoke(c, "UploadPhoto", body)
}

// googleStart remembers a fresh state in a cookie and redirects to Google.
func (g *Gateway) googleStart(c echo.Context) error {
	resp, err := apiv1.Call[apiv1.GoogleAuthURLRequest, apiv1.GoogleAuthURLResponse](g.outgoing(c), g.conn, "GoogleAuthURL", &apiv1.GoogleAuthURLRequest{})
	if err != nil {
		return g.writeError(c, err)
	}
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    resp.State,
		Path:     "/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.Scheme() == "https",
	})
	return c.Redirect(http.StatusFound, resp.URL)
}

func (g *Gateway) googleCallback(c echo.Context) error {
	if msg := c.QueryParam("error"); msg != "" {
		return c.JSON(http.StatusUnauthorized, errorBody{Code: "Unauthenticated", Message: msg})
	}
	cookie, err := c.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return c.JSON(http.StatusBadRequest, errorBody{Code: "InvalidArgument", Message: "oauth state mismatch"})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Code: "InvalidArgument", Message: "code required"})
	}
	c.SetCookie(&http.Cookie{Name: stateCookie, Path: "/auth/google", MaxAge: -1})

	body, err := json.Marshal(apiv1.LoginWithGoogleRequest{Code: code})
	if err != nil {
		return err
	}
	return g.invoke(c, "LoginWithGoogle", body)
}
