package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
	"github.com/valcrest-online/valcrest-backend/pkg/outbox/payloads"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.OutboxEvent{}))
	return db
}

func TestEmitBuffersEnvelope(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	orderID := uuid.New()
	accountID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.OutboxEventOrderCreated,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{AccountID: accountID},
			Data: payloads.OrderCreated{
				OrderID:   orderID,
				Token:     "ABC123",
				Flow:      "bundle",
				AccountID: accountID,
			},
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, enums.OutboxEventOrderCreated, row.EventType)
	assert.Equal(t, orderID, row.AggregateID)
	assert.Nil(t, row.PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, accountID, envelope.Actor.AccountID)

	var data payloads.OrderCreated
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "ABC123", data.Token)
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:   enums.OutboxEventType("order.refunded"),
			AggregateID: uuid.New(),
		})
	})
	assert.Error(t, err)
}

func TestFetchUnpublishedSkipsExhaustedEvents(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	var ids []uuid.UUID
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		for i := 0; i < 3; i++ {
			id := uuid.New()
			ids = append(ids, id)
			if err := svc.Emit(context.Background(), tx, DomainEvent{
				EventType:     enums.OutboxEventRewardCredited,
				AggregateType: enums.OutboxAggregateReward,
				AggregateID:   id,
				Data:          payloads.RewardCredited{Source: "vote"},
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	rows, err := repo.FetchUnpublished(10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublished(rows[0].ID))
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.MarkFailed(rows[1].ID, assert.AnError))
	}

	rows, err = repo.FetchUnpublished(10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[2], rows[0].AggregateID)
}
