package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/apiclient"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

type staticToken string

func (t staticToken) BearerToken() (string, bool) { return string(t), t != "" }

func main() {
	apiURL := pflag.String("api", "http://localhost:8080/api", "storefront API base URL")
	token := pflag.String("token", os.Getenv("STOREFRONT_TOKEN"), "bearer token of a signed-in user")
	totalRequests := pflag.Int("requests", 50, "concurrent requests per scenario")
	redisAddr := pflag.String("redis-addr", "", "keep the test cart in Redis instead of memory")
	pflag.Parse()

	if *token == "" {
		log.Fatal("a bearer token is required (--token or STOREFRONT_TOKEN)")
	}

	ctx := context.Background()
	logger := zap.NewNop()
	client := apiclient.New(*apiURL, nil, logger)

	var carts port.CartPersistence = storage.NewMemoryCartStore()
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		carts = storage.NewRedisAdapter(rdb)
	}

	replayOK := replaySameRequest(ctx, client, *token, *totalRequests)
	submitOK := concurrentSubmits(ctx, client, carts, *token, *totalRequests, logger)

	if !replayOK || !submitOK {
		os.Exit(1)
	}
}

// replaySameRequest fires one order request id many times at once. The
// server must accept exactly one and answer 409 to the rest.
func replaySameRequest(ctx context.Context, client *apiclient.Client, token string, total int) bool {
	req := domain.OrderRequest{
		RequestID: fmt.Sprintf("stress-%d", time.Now().UnixNano()),
		Items: []domain.OrderItem{
			{ProductID: "stress-item", ProductName: "Stress item", Quantity: 2, Price: decimal.NewFromInt(100)},
		},
		DeliveryType:   domain.ZoneLocal,
		Subtotal:       decimal.NewFromInt(200),
		DeliveryCharge: decimal.NewFromInt(50),
		TotalAmount:    decimal.NewFromInt(250),
		Customer:       domain.Customer{Name: "Stress", Phone: "000", Address: "Load st"},
	}

	var successCount, duplicateCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.CreateOrder(ctx, token, req)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrDuplicateRequest):
				duplicateCount.Add(1)
			default:
				failCount.Add(1)
			}
		}()
	}
	wg.Wait()

	success, duplicates, fail := successCount.Load(), duplicateCount.Load(), failCount.Load()
	fmt.Println("========== REPLAY RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", total)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Duplicates:       %d\n", duplicates)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", time.Since(start))
	fmt.Println("====================================")

	if success == 1 && duplicates == int32(total-1) {
		fmt.Println("PASS: exactly one order created")
		return true
	}
	fmt.Printf("FAIL: expected 1 success/%d duplicates, got %d/%d\n", total-1, success, duplicates)
	return false
}

// concurrentSubmits hammers one checkout flow, like a user double clicking
// the place order button. Exactly one submission may reach the API.
func concurrentSubmits(ctx context.Context, client *apiclient.Client, carts port.CartPersistence, token string, total int, logger *zap.Logger) bool {
	cart := service.NewCartStore(ctx, carts, logger)
	cart.SwitchIdentity(ctx, domain.IdentityKey(fmt.Sprintf("stress-%d", time.Now().UnixNano())))
	product := domain.Product{ID: "stress-item", Name: "Stress item", Price: decimal.NewFromInt(100)}
	if err := cart.AddItem(ctx, product, 2); err != nil {
		log.Fatalf("failed to fill cart: %v", err)
	}

	flow := service.NewCheckoutFlow(cart, service.DefaultPricing(), client, staticToken(token), logger)
	form := service.CheckoutForm{Name: "Stress", Phone: "000", Address: "Load st", Zone: domain.ZoneLocal}

	var successCount, inFlightCount, emptyCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := flow.Submit(ctx, form)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrSubmitInProgress):
				inFlightCount.Add(1)
			case errors.Is(err, service.ErrEmptyCart):
				emptyCount.Add(1)
			default:
				failCount.Add(1)
			}
		}()
	}
	wg.Wait()

	success := successCount.Load()
	fmt.Println("========== DOUBLE SUBMIT RESULTS ==========")
	fmt.Printf("Total Submits:    %d\n", total)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Rejected (busy):  %d\n", inFlightCount.Load())
	fmt.Printf("Rejected (empty): %d\n", emptyCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", time.Since(start))
	fmt.Println("===========================================")

	if success == 1 && failCount.Load() == 0 && len(cart.Items()) == 0 {
		fmt.Println("PASS: one order placed, cart cleared")
		return true
	}
	fmt.Printf("FAIL: expected 1 success and an empty cart, got %d successes and %d cart lines\n",
		success, len(cart.Items()))
	return false
}
