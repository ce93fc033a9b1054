package api

import (
	"Go2NetSwitch/internal/model"
	"context"
	"fmt"
	"net"

	"github.com/projectdiscovery/gologger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "goswitch.v1.SwitchService"

// SwitchServiceServer is the server side of goswitch.v1.SwitchService. Every
// method takes an empty request and returns a generic document.
type SwitchServiceServer interface {
	ShowMacTable(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ShowIgmpTable(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ShowPorts(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	HealthCheck(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func unaryHandler(name string, call func(SwitchServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(emptypb.Empty)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SwitchServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SwitchServiceServer), ctx, req.(*emptypb.Empty))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// SwitchServiceDesc describes goswitch.v1.SwitchService for grpc.Server.
var SwitchServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SwitchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("ShowMacTable", SwitchServiceServer.ShowMacTable),
		unaryHandler("ShowIgmpTable", SwitchServiceServer.ShowIgmpTable),
		unaryHandler("ShowPorts", SwitchServiceServer.ShowPorts),
		unaryHandler("HealthCheck", SwitchServiceServer.HealthCheck),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "goswitch/v1/switch.proto",
}

// RegisterSwitchServiceServer registers srv on s.
func RegisterSwitchServiceServer(s grpc.ServiceRegistrar, srv SwitchServiceServer) {
	s.RegisterService(&SwitchServiceDesc, srv)
}

// SwitchService serves a SwitchState over gRPC.
type SwitchService struct {
	state model.SwitchState
}

// NewSwitchService creates the gRPC service over state.
func NewSwitchService(state model.SwitchState) *SwitchService {
	return &SwitchService{state: state}
}

func (s *SwitchService) ShowMacTable(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return grpcView(macTableView(s.state.MacTable()))
}

func (s *SwitchService) ShowIgmpTable(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return grpcView(igmpTableView(s.state.IgmpTable(), s.state.Queriers()))
}

func (s *SwitchService) ShowPorts(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return grpcView(portsView(s.state.PortStats()))
}

func (s *SwitchService) HealthCheck(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	gologger.Verbose().Msgf("Received HealthCheck request")
	return grpcView(healthView(s.state))
}

func grpcView(view *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return view, nil
}

var _ SwitchServiceServer = (*SwitchService)(nil)

// GRPCServer runs SwitchService on a TCP listener.
type GRPCServer struct {
	addr   string
	server *grpc.Server
}

// NewGRPCServer creates the gRPC server. It does not listen until Start.
func NewGRPCServer(addr string, state model.SwitchState) *GRPCServer {
	s := grpc.NewServer()
	RegisterSwitchServiceServer(s, NewSwitchService(state))
	return &GRPCServer{addr: addr, server: s}
}

// Start opens the listener and serves in the background.
func (s *GRPCServer) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	go func() {
		gologger.Info().Msgf("gRPC server listening at %v", lis.Addr())
		if err := s.server.Serve(lis); err != nil {
			gologger.Error().Msgf("gRPC server stopped: %v", err)
		}
	}()
	return nil
}

// Stop waits for pending calls and closes the listener.
func (s *GRPCServer) Stop() {
	s.server.GracefulStop()
}

// Client calls a remote SwitchService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial connects to a switch at addr without transport security.
func Dial(addr string) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("did not connect to %s: %w", addr, err)
	}
	return NewClient(conn), conn, nil
}

func (c *Client) invoke(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ShowMacTable(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ShowMacTable", opts...)
}

func (c *Client) ShowIgmpTable(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ShowIgmpTable", opts...)
}

func (c *Client) ShowPorts(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ShowPorts", opts...)
}

func (c *Client) HealthCheck(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "HealthCheck", opts...)
}
