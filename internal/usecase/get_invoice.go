package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orderflow/internal/domain/invoice"
	"orderflow/internal/infrastructure/postgres"

	"github.com/redis/go-redis/v9"
)

type GetInvoice struct {
	redisClient *redis.Client
	invoiceRepo *postgres.InvoiceRepository
}

func NewGetInvoice(redisClient *redis.Client, invoiceRepo *postgres.InvoiceRepository) *GetInvoice {
	return &GetInvoice{
		redisClient: redisClient,
		invoiceRepo: invoiceRepo,
	}
}

// Execute reads through a short-lived Redis cache. Cache errors are
// ignored: Postgres is the source of truth.
func (uc *GetInvoice) Execute(ctx context.Context, invoiceID string) (*invoice.Invoice, error) {
	cacheKey := fmt.Sprintf("invoice:%s", invoiceID)

	if uc.redisClient != nil {
		val, err := uc.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var inv invoice.Invoice
			if err := json.Unmarshal([]byte(val), &inv); err == nil {
				return &inv, nil
			}
		}
	}

	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if uc.redisClient != nil {
		data, _ := json.Marshal(inv)
		// Short TTL so status transitions show up quickly
		uc.redisClient.Set(ctx, cacheKey, data, 1*time.Second)
	}

	return inv, nil
}

// ExecuteByOrder looks up the invoice by its order reference, uncached.
func (uc *GetInvoice) ExecuteByOrder(ctx context.Context, orderID string) (*invoice.Invoice, error) {
	return uc.invoiceRepo.GetByOrderID(ctx, orderID)
}
