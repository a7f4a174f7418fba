package handler

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "skytrack/internal/api/v1"
	"skytrack/internal/auth"
	"skytrack/internal/identity"
	"skytrack/internal/logger"
	"skytrack/internal/middleware"
	"skytrack/internal/model"
	"skytrack/internal/query"
	"skytrack/internal/store"
	"skytrack/internal/upload"
)

// GoogleFlow is the OAuth side of Google sign-in. *google.Flow satisfies it.
type GoogleFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

type Handler struct {
	store    *store.Store
	idp      identity.Provider
	sessions *auth.Sessions
	uploads  upload.Uploader
	google   GoogleFlow
	log      *logger.Logger
	now      func() time.Time
}

var _ apiv1.SkyTrackServer = (*Handler)(nil)

type Option func(*Handler)

func WithUploader(u upload.Uploader) Option { return func(h *Handler) { h.uploads = u } }

func WithGoogle(g GoogleFlow) Option { return func(h *Handler) { h.google = g } }

func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

func New(st *store.Store, idp identity.Provider, sessions *auth.Sessions, log *logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		store:    st,
		idp:      idp,
		sessions: sessions,
		log:      log.WithComponent("handler"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func uid(ctx context.Context) string {
	id, _ := middleware.UserID(ctx)
	return id
}

// workspace is the caller's open workspace. Every data call goes through it.
func (h *Handler) workspace(ctx context.Context) (*store.Workspace, error) {
	w, err := h.store.Workspace(uid(ctx))
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return w, nil
}

// fail maps package errors onto gRPC codes. Anything unrecognised is logged
// and hidden behind Internal.
func (h *Handler) fail(ctx context.Context, err error) error {
	if s, ok := status.FromError(err); ok && s.Code() != codes.OK {
		return err
	}
	switch {
	case errors.Is(err, model.ErrInvalid),
		errors.Is(err, identity.ErrInvalidInput),
		errors.Is(err, query.ErrBadFilter),
		errors.Is(err, upload.ErrNotImage):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, store.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "not signed in")
	case errors.Is(err, identity.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, auth.ErrBadToken), errors.Is(err, auth.ErrRefreshReused):
		return status.Error(codes.Unauthenticated, "invalid refresh token")
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, identity.ErrNotFound),
		errors.Is(err, query.ErrClassNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, identity.ErrEmailTaken):
		return status.Error(codes.AlreadyExists, "email already registered")
	case errors.Is(err, identity.ErrUnsupported):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		h.log.Errorw("request failed", "user_id", uid(ctx), "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
