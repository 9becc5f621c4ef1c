package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotkeeper/services/booking-service/internal/model"
	"github.com/segmentio/kafka-go"
)

const TopicCatalogStoreUpdated = "catalog.store.updated.v1"

// StoreUpdated is published by the catalog service whenever a store or one of its
// services changes. Snapshots are optional; without them only the cache is dropped.
type StoreUpdated struct {
	StoreID   string           `json:"store_id"`
	ServiceID string           `json:"service_id,omitempty"`
	Store     *StoreSnapshot   `json:"store,omitempty"`
	Service   *ServiceSnapshot `json:"service,omitempty"`
}

type StoreSnapshot struct {
	OwnerID                string        `json:"owner_id"`
	Timezone               string        `json:"timezone"`
	BookingIntervalMinutes int           `json:"booking_interval_minutes"`
	WorkingDays            []DaySnapshot `json:"working_days"`
}

type DaySnapshot struct {
	Weekday     int  `json:"weekday"`
	IsOpen      bool `json:"is_open"`
	OpenMinute  int  `json:"open_minute"`
	CloseMinute int  `json:"close_minute"`
}

type ServiceSnapshot struct {
	DurationMinutes int `json:"duration_minutes"`
}

type Invalidator interface {
	Invalidate(ctx context.Context, storeID, serviceID string) error
}

// CatalogHandler applies catalog change events to the local read model, then drops
// the affected cache entries. writer may be nil when the read model is not local.
func CatalogHandler(logger *slog.Logger, writer catalog.Writer, cache Invalidator) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt StoreUpdated
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Topic, err)
		}
		if evt.StoreID == "" {
			return fmt.Errorf("decode %s: missing store_id", msg.Topic)
		}

		if writer != nil && evt.Store != nil {
			if err := writer.UpsertStore(ctx, evt.Store.toModel(evt.StoreID)); err != nil {
				return fmt.Errorf("upsert store %s: %w", evt.StoreID, err)
			}
		}
		if writer != nil && evt.Service != nil && evt.ServiceID != "" {
			svc := model.Service{ID: evt.ServiceID, StoreID: evt.StoreID, DurationMinutes: evt.Service.DurationMinutes}
			if err := writer.UpsertService(ctx, svc); err != nil {
				return fmt.Errorf("upsert service %s: %w", evt.ServiceID, err)
			}
		}

		if cache != nil {
			if err := cache.Invalidate(ctx, evt.StoreID, evt.ServiceID); err != nil {
				return fmt.Errorf("invalidate catalog cache: %w", err)
			}
		}
		logger.Info("catalog change applied", "store_id", evt.StoreID, "service_id", evt.ServiceID)
		return nil
	}
}

func (s StoreSnapshot) toModel(storeID string) model.Store {
	days := make([]model.WorkingDay, 0, len(s.WorkingDays))
	for _, d := range s.WorkingDays {
		days = append(days, model.WorkingDay{
			Weekday:     time.Weekday(d.Weekday),
			IsOpen:      d.IsOpen,
			OpenMinute:  d.OpenMinute,
			CloseMinute: d.CloseMinute,
		})
	}
	return model.Store{
		ID:                     storeID,
		OwnerID:                s.OwnerID,
		Timezone:               s.Timezone,
		BookingIntervalMinutes: s.BookingIntervalMinutes,
		WorkingDays:            days,
	}
}
