package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadpulse/cmd/admission-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRecorder(repo *memAuditRepo) *AuditRecorder {
	return NewAuditRecorder(repo, DefaultAuditConfig(), zap.NewNop())
}

func TestAuditRecorder_RecordsFlushOnClose(t *testing.T) {
	repo := &memAuditRepo{}
	recorder := newTestRecorder(repo)

	for i := 0; i < 10; i++ {
		recorder.Record(&domain.AuditRecord{
			EntityID:  "lead-1",
			ActorID:   "user-1",
			Action:    domain.ActionLeadUpdated,
			ActorType: domain.ActorHuman,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Close(ctx))

	records := repo.all()
	require.Len(t, records, 10)
	for _, r := range records {
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())
	}
}

func TestAuditRecorder_StoreFailureNeverPropagates(t *testing.T) {
	repo := &memAuditRepo{}
	repo.failWith(errors.New("disk full"))
	recorder := newTestRecorder(repo)

	// 落库失败只能丢弃，绝不打断调用方
	assert.NotPanics(t, func() {
		for i := 0; i < 10; i++ {
			recorder.Record(&domain.AuditRecord{
				EntityID: "lead-1",
				Action:   domain.ActionLeadUpdated,
			})
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Close(ctx))
	assert.Empty(t, repo.all())
}

func TestAuditRecorder_RecordAfterCloseDropsSilently(t *testing.T) {
	repo := &memAuditRepo{}
	recorder := newTestRecorder(repo)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Close(ctx))

	assert.NotPanics(t, func() {
		recorder.Record(&domain.AuditRecord{EntityID: "lead-1", Action: domain.ActionLeadUpdated})
	})
}

func TestAuditRecorder_CloseIdempotent(t *testing.T) {
	recorder := newTestRecorder(&memAuditRepo{})

	ctx := context.Background()
	require.NoError(t, recorder.Close(ctx))
	require.NoError(t, recorder.Close(ctx))
}

func TestAuditRecorder_TrailReturnsEntityHistory(t *testing.T) {
	repo := &memAuditRepo{}
	recorder := newTestRecorder(repo)

	recorder.Record(&domain.AuditRecord{EntityID: "lead-1", Action: domain.ActionLeadIngested})
	recorder.Record(&domain.AuditRecord{EntityID: "lead-2", Action: domain.ActionLeadIngested})
	recorder.Record(&domain.AuditRecord{EntityID: "lead-1", Action: domain.ActionMessageRelayed})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Close(ctx))

	trail, err := recorder.Trail(ctx, "lead-1", 50)
	require.NoError(t, err)
	assert.Len(t, trail, 2)

	recent, err := recorder.Recent(ctx, 50, domain.ActionLeadIngested)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestAuditRecorder_LimitClamped(t *testing.T) {
	repo := &memAuditRepo{}
	recorder := newTestRecorder(repo)
	defer recorder.Close(context.Background())

	for i := 0; i < 60; i++ {
		repo.records = append(repo.records, &domain.AuditRecord{EntityID: "lead-1", Action: domain.ActionLeadUpdated})
	}

	// 非法 limit 回退到默认 50
	trail, err := recorder.Trail(context.Background(), "lead-1", -1)
	require.NoError(t, err)
	assert.Len(t, trail, 50)

	trail, err = recorder.Trail(context.Background(), "lead-1", 500)
	require.NoError(t, err)
	assert.Len(t, trail, 50)
}
