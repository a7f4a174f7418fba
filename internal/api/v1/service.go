// Package apiv1 declares the skytrack.v1.SkyTrack gRPC service: its messages,
// its JSON codec and a hand-written service descriptor.
package apiv1

import (
	"context"

	"google.golang.org/grpc"

	"skytrack/internal/model"
)

const ServiceName = "skytrack.v1.SkyTrack"

// Method returns the full gRPC method name, e.g. /skytrack.v1.SkyTrack/Login.
func Method(name string) string { return "/" + ServiceName + "/" + name }

type SkyTrackServer interface {
	Register(context.Context, *RegisterRequest) (*Session, error)
	Login(context.Context, *LoginRequest) (*Session, error)
	LoginWithGoogle(context.Context, *LoginWithGoogleRequest) (*Session, error)
	GoogleAuthURL(context.Context, *GoogleAuthURLRequest) (*GoogleAuthURLResponse, error)
	Refresh(context.Context, *RefreshRequest) (*Session, error)
	Logout(context.Context, *Empty) (*Empty, error)
	Me(context.Context, *Empty) (*UserResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*UserResponse, error)
	UploadPhoto(context.Context, *UploadPhotoRequest) (*UploadPhotoResponse, error)

	ListClasses(context.Context, *ListRequest) (*ClassList, error)
	AddClass(context.Context, *model.ClassFields) (*model.Class, error)
	UpdateClass(context.Context, *UpdateClassRequest) (*model.Class, error)
	RemoveClass(context.Context, *IDRequest) (*Empty, error)

	ListTasks(context.Context, *ListRequest) (*TaskList, error)
	AddTask(context.Context, *model.TaskFields) (*model.Task, error)
	UpdateTask(context.Context, *UpdateTaskRequest) (*model.Task, error)
	RemoveTask(context.Context, *IDRequest) (*Empty, error)

	ListNotes(context.Context, *ListRequest) (*NoteList, error)
	AddNote(context.Context, *model.NoteFields) (*model.Note, error)
	UpdateNote(context.Context, *UpdateNoteRequest) (*model.Note, error)
	RemoveNote(context.Context, *IDRequest) (*Empty, error)

	ListContacts(context.Context, *ListRequest) (*ContactList, error)
	AddContact(context.Context, *model.ContactFields) (*model.Contact, error)
	UpdateContact(context.Context, *UpdateContactRequest) (*model.Contact, error)
	RemoveContact(context.Context, *IDRequest) (*Empty, error)

	ListEvents(context.Context, *ListRequest) (*EventList, error)
	AddEvent(context.Context, *model.EventFields) (*model.Event, error)
	UpdateEvent(context.Context, *UpdateEventRequest) (*model.Event, error)
	RemoveEvent(context.Context, *IDRequest) (*Empty, error)

	Dashboard(context.Context, *Empty) (*DashboardResponse, error)
	ClassDetail(context.Context, *ClassDetailRequest) (*ClassDetailResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	NoteStats(context.Context, *NoteStatsRequest) (*NoteStatsResponse, error)
}

// Public methods are callable without an access token.
var Public = map[string]bool{
	Method("Register"):        true,
	Method("Login"):           true,
	Method("LoginWithGoogle"): true,
	Method("GoogleAuthURL"):   true,
	Method("Refresh"):         true,
}

// Throttled methods are rate limited per client.
var Throttled = map[string]bool{
	Method("Register"):        true,
	Method("Login"):           true,
	Method("LoginWithGoogle"): true,
	Method("Refresh"):         true,
}

func unary[Req, Resp any](name string, call func(SkyTrackServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(SkyTrackServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Method(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SkyTrackServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", SkyTrackServer.Register),
		unary("Login", SkyTrackServer.Login),
		unary("LoginWithGoogle", SkyTrackServer.LoginWithGoogle),
		unary("GoogleAuthURL", SkyTrackServer.GoogleAuthURL),
		unary("Refresh", SkyTrackServer.Refresh),
		unary("Logout", SkyTrackServer.Logout),
		unary("Me", SkyTrackServer.Me),
		unary("UpdateProfile", SkyTrackServer.UpdateProfile),
		unary("UploadPhoto", SkyTrackServer.UploadPhoto),

		unary("ListClasses", SkyTrackServer.ListClasses),
		unary("AddClass", SkyTrackServer.AddClass),
		unary("UpdateClass", SkyTrackServer.UpdateClass),
		unary("RemoveClass", SkyTrackServer.RemoveClass),

		unary("ListTasks", SkyTrackServer.ListTasks),
		unary("AddTask", SkyTrackServer.AddTask),
		unary("UpdateTask", SkyTrackServer.UpdateTask),
		unary("RemoveTask", SkyTrackServer.RemoveTask),

		unary("ListNotes", SkyTrackServer.ListNotes),
		unary("AddNote", SkyTrackServer.AddNote),
		unary("UpdateNote", SkyTrackServer.UpdateNote),
		unary("RemoveNote", SkyTrackServer.RemoveNote),

		unary("ListContacts", SkyTrackServer.ListContacts),
		unary("AddContact", SkyTrackServer.AddContact),
		unary("UpdateContact", SkyTrackServer.UpdateContact),
		unary("RemoveContact", SkyTrackServer.RemoveContact),

		unary("ListEvents", SkyTrackServer.ListEvents),
		unary("AddEvent", SkyTrackServer.AddEvent),
		unary("UpdateEvent", SkyTrackServer.UpdateEvent),
		unary("RemoveEvent", SkyTrackServer.RemoveEvent),

		unary("Dashboard", SkyTrackServer.Dashboard),
		unary("ClassDetail", SkyTrackServer.ClassDetail),
		unary("Search", SkyTrackServer.Search),
		unary("NoteStats", SkyTrackServer.NoteStats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "skytrack/v1/skytrack.proto",
}

// Known reports whether name is one of the service's methods.
func Known(name string) bool {
	for _, m := range ServiceDesc.Methods {
		if m.MethodName == name {
			return true
		}
	}
	return false
}

func RegisterSkyTrackServer(s grpc.ServiceRegistrar, srv SkyTrackServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// MaxMessageBytes bounds a single message either way. It leaves room for a
// full-size photo after base64 in the JSON body.
const MaxMessageBytes = 16 << 20

// ServerOptions are the message limits every SkyTrack server runs with.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.MaxRecvMsgSize(MaxMessageBytes),
		grpc.MaxSendMsgSize(MaxMessageBytes),
	}
}

// DialOptions are the matching client limits.
func DialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(MaxMessageBytes),
			grpc.MaxCallRecvMsgSize(MaxMessageBytes),
		),
	}
}

// Call invokes one unary method with the JSON codec.
func Call[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, Method(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
