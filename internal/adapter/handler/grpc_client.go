package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/rl1809/storefront/internal/core/domain"
)

// OrderServiceClient calls storefront.v1.OrderService with the JSON codec.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) PlaceOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.Order, error) {
	var out domain.Order
	err := c.cc.Invoke(withBearer(ctx, token), "/"+orderServiceName+"/PlaceOrder", &req, &out,
		grpc.CallContentSubtype(CodecName))
	if err != nil {
		return domain.Order{}, err
	}
	return out, nil
}

func (c *OrderServiceClient) ListOrders(ctx context.Context, token string) ([]domain.Order, error) {
	var out ListOrdersResponse
	err := c.cc.Invoke(withBearer(ctx, token), "/"+orderServiceName+"/ListOrders", &ListOrdersRequest{}, &out,
		grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func withBearer(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}
