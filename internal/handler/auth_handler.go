package handler

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "skytrack/internal/api/v1"
	"skytrack/internal/identity"
	"skytrack/internal/middleware"
	"skytrack/internal/model"
	"skytrack/internal/upload"
)

func (h *Handler) Register(ctx context.Context, req *apiv1.RegisterRequest) (*apiv1.Session, error) {
	reg, err := identity.Registration{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	}.Normalize()
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	u, err := h.idp.Register(ctx, reg)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	h.log.LogUserAction(u.UID, "register", "provider", h.idp.Name())
	return h.begin(ctx, u)
}

func (h *Handler) Login(ctx context.Context, req *apiv1.LoginRequest) (*apiv1.Session, error) {
	email := identity.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password required")
	}
	u, err := h.idp.Login(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			h.log.LogSecurityEvent("login_failed", "", middleware.ClientIP(ctx))
		}
		return nil, h.fail(ctx, err)
	}
	return h.begin(ctx, u)
}

func (h *Handler) LoginWithGoogle(ctx context.Context, req *apiv1.LoginWithGoogleRequest) (*apiv1.Session, error) {
	idToken := req.IDToken
	if idToken == "" && req.Code != "" {
		if h.google == nil {
			return nil, h.fail(ctx, identity.ErrUnsupported)
		}
		tok, err := h.google.Exchange(ctx, req.Code)
		if err != nil {
			h.log.Warnw("google code exchange failed", "error", err)
			return nil, status.Error(codes.Unauthenticated, "google sign-in failed")
		}
		idToken = tok
	}
	if idToken == "" {
		return nil, status.Error(codes.InvalidArgument, "idToken or code required")
	}
	u, err := h.idp.LoginWithGoogle(ctx, idToken)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return h.begin(ctx, u)
}

func (h *Handler) GoogleAuthURL(ctx context.Context, req *apiv1.GoogleAuthURLRequest) (*apiv1.GoogleAuthURLResponse, error) {
	if h.google == nil {
		return nil, h.fail(ctx, identity.ErrUnsupported)
	}
	state := req.State
	if state == "" {
		state = uuid.NewString()
	}
	return &apiv1.GoogleAuthURLResponse{URL: h.google.AuthURL(state), State: state}, nil
}

// Refresh rotates the refresh token and reopens the workspace, so a client
// can resume after the server restarted.
func (h *Handler) Refresh(ctx context.Context, req *apiv1.RefreshRequest) (*apiv1.Session, error) {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, status.Error(codes.InvalidArgument, "refreshToken required")
	}
	pair, id, err := h.sessions.Refresh(ctx, req.RefreshToken, h.idp.Name())
	if err != nil {
		if id != "" {
			h.log.LogSecurityEvent("refresh_rejected", id, middleware.ClientIP(ctx))
		}
		return nil, h.fail(ctx, err)
	}
	u, err := h.idp.User(ctx, id)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	if _, err := h.store.Open(ctx, id); err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		Provider:     h.idp.Name(),
		User:         u,
	}, nil
}

// begin opens the user's workspace and issues their tokens.
func (h *Handler) begin(ctx context.Context, u model.User) (*apiv1.Session, error) {
	if _, err := h.store.Open(ctx, u.UID); err != nil {
		return nil, h.fail(ctx, err)
	}
	pair, err := h.sessions.Issue(ctx, u.UID, h.idp.Name())
	if err != nil {
		h.store.Close(u.UID)
		return nil, h.fail(ctx, err)
	}
	return &apiv1.Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		Provider:     h.idp.Name(),
		User:         u,
	}, nil
}

// Logout always closes the workspace, even when the provider call fails.
func (h *Handler) Logout(ctx context.Context, _ *apiv1.Empty) (*apiv1.Empty, error) {
	id := uid(ctx)
	defer h.store.Close(id)

	if err := h.sessions.Revoke(ctx, id); err != nil {
		return nil, h.fail(ctx, err)
	}
	if err := h.idp.Logout(ctx, id); err != nil {
		h.log.Warnw("provider logout failed", "user_id", id, "error", err)
	}
	h.log.LogUserAction(id, "logout")
	return &apiv1.Empty{}, nil
}

func (h *Handler) Me(ctx context.Context, _ *apiv1.Empty) (*apiv1.UserResponse, error) {
	u, err := h.idp.User(ctx, uid(ctx))
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.UserResponse{User: u}, nil
}

func (h *Handler) UpdateProfile(ctx context.Context, req *apiv1.UpdateProfileRequest) (*apiv1.UserResponse, error) {
	if err := identity.CheckPatch(req.ProfilePatch); err != nil {
		return nil, h.fail(ctx, err)
	}
	id := uid(ctx)
	u, err := h.idp.UpdateProfile(ctx, id, req.ProfilePatch)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	h.log.LogUserAction(id, "update_profile")
	return &apiv1.UserResponse{User: u}, nil
}

func (h *Handler) UploadPhoto(ctx context.Context, req *apiv1.UploadPhotoRequest) (*apiv1.UploadPhotoResponse, error) {
	if h.uploads == nil {
		return nil, h.fail(ctx, identity.ErrUnsupported)
	}
	if len(req.Data) == 0 {
		return nil, status.Error(codes.InvalidArgument, "empty upload")
	}
	if len(req.Data) > upload.MaxPhotoBytes {
		return nil, status.Error(codes.InvalidArgument, "photo too large")
	}
	if err := upload.CheckImage(req.ContentType); err != nil {
		return nil, h.fail(ctx, err)
	}

	id := uid(ctx)
	url, err := h.uploads.Upload(ctx, id, req.Filename, req.ContentType, bytes.NewReader(req.Data))
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	u, err := h.idp.UpdateProfile(ctx, id, model.ProfilePatch{PhotoURL: &url})
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	h.log.LogUserAction(id, "upload_photo", "uploader", h.uploads.Name())
	return &apiv1.UploadPhotoResponse{URL: url, User: u}, nil
}
