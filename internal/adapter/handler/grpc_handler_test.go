package handler

import (
	"context"
	"net"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

func setupGRPC(t *testing.T) (*OrderServiceClient, *grpc.ClientConn) {
	t.Helper()

	logger := zap.NewNop()
	orders := service.NewOrderService(storage.NewMemoryCache(), storage.NewMemoryRepository(), service.DefaultPricing(), logger)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterOrderServiceServer(srv, NewGRPCHandler(orders, testVerifier(), logger))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewOrderServiceClient(conn), conn
}

func grpcOrderRequest(requestID string, total int64) domain.OrderRequest {
	return domain.OrderRequest{
		RequestID: requestID,
		Items: []domain.OrderItem{
			{ProductID: "p1", ProductName: "Honey cake", Quantity: 2, Price: decimal.NewFromInt(100)},
			{ProductID: "p2", ProductName: "Baklava", Quantity: 1, Price: decimal.NewFromInt(250)},
		},
		DeliveryType:   domain.ZoneRegional,
		Subtotal:       decimal.NewFromInt(450),
		DeliveryCharge: decimal.NewFromInt(70),
		TotalAmount:    decimal.NewFromInt(total),
		Customer:       domain.Customer{Name: "Alice", Phone: "0100", Address: "1 Main St"},
	}
}

func TestGRPC_PlaceOrder(t *testing.T) {
	client, _ := setupGRPC(t)
	ctx := context.Background()

	order, err := client.PlaceOrder(ctx, aliceToken, grpcOrderRequest("req-1", 520))
	require.NoError(t, err)
	assert.Equal(t, "alice", order.UserID)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(520)))

	_, err = client.PlaceOrder(ctx, aliceToken, grpcOrderRequest("req-1", 520))
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = client.PlaceOrder(ctx, aliceToken, grpcOrderRequest("req-2", 999))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.PlaceOrder(ctx, "", grpcOrderRequest("req-3", 520))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = client.PlaceOrder(ctx, "forged", grpcOrderRequest("req-3", 520))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestGRPC_ListOrders(t *testing.T) {
	client, _ := setupGRPC(t)
	ctx := context.Background()

	_, err := client.PlaceOrder(ctx, aliceToken, grpcOrderRequest("req-1", 520))
	require.NoError(t, err)
	_, err = client.PlaceOrder(ctx, bobToken, grpcOrderRequest("req-1", 520))
	require.NoError(t, err)

	mine, err := client.ListOrders(ctx, bobToken)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "bob", mine[0].UserID)

	all, err := client.ListOrders(ctx, adminToken)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGRPC_HealthCheck(t *testing.T) {
	_, conn := setupGRPC(t)

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}
