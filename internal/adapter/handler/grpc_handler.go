package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

// CodecName is the content subtype clients must request, as in
// grpc.CallContentSubtype(CodecName).
const CodecName = "json"

const orderServiceName = "storefront.v1.OrderService"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec lets the order service run over gRPC with plain Go structs as
// messages.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

type ListOrdersRequest struct{}

type ListOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// OrderServiceServer is the server side of storefront.v1.OrderService.
type OrderServiceServer interface {
	PlaceOrder(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error)
	ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error)
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: orderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: placeOrderHandler},
		{MethodName: "ListOrders", Handler: listOrdersHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

func placeOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(domain.OrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).PlaceOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderServiceName + "/PlaceOrder"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).PlaceOrder(ctx, req.(*domain.OrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listOrdersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).ListOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderServiceName + "/ListOrders"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).ListOrders(ctx, req.(*ListOrdersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type GRPCHandler struct {
	orderService *service.OrderService
	verifier     port.TokenVerifier
	logger       *zap.Logger
}

var _ OrderServiceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(orderService *service.OrderService, verifier port.TokenVerifier, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{orderService: orderService, verifier: verifier, logger: logger}
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *domain.OrderRequest) (*domain.Order, error) {
	user, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if req.RequestID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing request id")
	}

	order, err := h.orderService.PlaceOrder(ctx, user, *req)
	if err != nil {
		return nil, h.mapError(err)
	}
	return &order, nil
}

func (h *GRPCHandler) ListOrders(ctx context.Context, _ *ListOrdersRequest) (*ListOrdersResponse, error) {
	user, err := h.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := h.orderService.ListOrders(ctx, user)
	if err != nil {
		return nil, h.mapError(err)
	}
	return &ListOrdersResponse{Orders: orders}, nil
}

func (h *GRPCHandler) authenticate(ctx context.Context) (domain.User, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 {
		return domain.User{}, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	token, ok := strings.CutPrefix(values[0], "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return domain.User{}, status.Error(codes.Unauthenticated, "missing bearer token")
	}

	user, err := h.verifier.VerifyToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if !errors.Is(err, domain.ErrNotAuthenticated) {
			h.logger.Warn("token verification failed", zap.Error(err))
		}
		return domain.User{}, status.Error(codes.Unauthenticated, "authentication failed")
	}
	return user, nil
}

func (h *GRPCHandler) mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "duplicate request")
	case errors.Is(err, service.ErrInvalidOrder), errors.Is(err, service.ErrTotalMismatch):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	}
	h.logger.Error("grpc request failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}
