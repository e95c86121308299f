package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/medisys/clinicore/internal/audit/domain"
	"github.com/medisys/clinicore/internal/audit/repository"
	"github.com/medisys/clinicore/internal/clock"
	"github.com/medisys/clinicore/internal/migration"
	"github.com/medisys/clinicore/internal/requestctx"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"github.com/medisys/clinicore/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.Provide(),
	})
	return svc, fakeClock
}

func TestRecordAndList(t *testing.T) {
	svc, fakeClock := newTestService(t)
	ctx := context.Background()

	actor := userdomain.Actor{ID: 42, Role: userdomain.RoleDoctor}
	svc.Record(ctx, auditdomain.Entry{
		Actor:      actor,
		Action:     "lab_order.created",
		TargetType: "lab_order",
		TargetID:   "100",
		Metadata:   map[string]any{"tests": 2},
	})
	fakeClock.Advance(time.Second)
	svc.Record(ctx, auditdomain.Entry{
		Action:     "catalog_test.seeded",
		TargetType: "catalog_test",
	})

	// Empty actions are dropped, not stored.
	svc.Record(ctx, auditdomain.Entry{Action: "  "})

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 2)

	// Newest first.
	assert.Equal(t, "catalog_test.seeded", resp.AuditLogs[0].Action)
	assert.Equal(t, string(auditdomain.ActorTypeSystem), resp.AuditLogs[0].ActorType)

	created := resp.AuditLogs[1]
	assert.Equal(t, string(auditdomain.ActorTypeUser), created.ActorType)
	require.NotNil(t, created.ActorID)
	assert.Equal(t, "42", *created.ActorID)
	require.NotNil(t, created.ActorRole)
	assert.Equal(t, "doctor", *created.ActorRole)
	require.NotNil(t, created.TargetID)
	assert.Equal(t, "100", *created.TargetID)
}

func TestRecordCapturesRequestContext(t *testing.T) {
	svc, _ := newTestService(t)

	ctx := context.Background()
	ctx = requestctx.WithRequestID(ctx, "req-abc-123")
	ctx = requestctx.WithIPAddress(ctx, "10.0.0.9")
	ctx = requestctx.WithUserAgent(ctx, "clinicore-ui/2.1")

	svc.Record(ctx, auditdomain.Entry{
		Actor:      userdomain.Actor{ID: 42, Role: userdomain.RoleDoctor},
		Action:     "lab_order.created",
		TargetType: "lab_order",
		TargetID:   "100",
	})

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "req-abc-123", entry.Metadata["request_id"])
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.9", *entry.IPAddress)
	require.NotNil(t, entry.UserAgent)
	assert.Equal(t, "clinicore-ui/2.1", *entry.UserAgent)
}

func TestListFilters(t *testing.T) {
	svc, fakeClock := newTestService(t)
	ctx := context.Background()

	actions := []string{"lab_order.created", "payment.recorded", "lab_order.cancelled"}
	for _, action := range actions {
		svc.Record(ctx, auditdomain.Entry{
			Actor:      userdomain.Actor{ID: 7, Role: userdomain.RoleReceptionist},
			Action:     action,
			TargetType: "lab_order",
			TargetID:   "55",
		})
		fakeClock.Advance(time.Minute)
	}

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "payment.recorded"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "payment.recorded", resp.AuditLogs[0].Action)

	resp, err = svc.List(ctx, auditdomain.ListAuditLogRequest{ActorID: "7"})
	require.NoError(t, err)
	assert.Len(t, resp.AuditLogs, 3)

	resp, err = svc.List(ctx, auditdomain.ListAuditLogRequest{ActorID: "8"})
	require.NoError(t, err)
	assert.Empty(t, resp.AuditLogs)

	cutoff := time.Date(2025, 6, 1, 9, 1, 30, 0, time.UTC)
	resp, err = svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &cutoff})
	require.NoError(t, err)
	assert.Len(t, resp.AuditLogs, 1)

	before := cutoff.Add(-time.Hour)
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &cutoff, EndAt: &before})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}

func TestListPagination(t *testing.T) {
	svc, fakeClock := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Record(ctx, auditdomain.Entry{Action: "lab_order.created", TargetType: "lab_order"})
		fakeClock.Advance(time.Second)
	}

	seen := 0
	token := ""
	for page := 0; page < 10; page++ {
		resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{
			Pagination: pagination.Pagination{PageToken: token, PageSize: 2},
		})
		require.NoError(t, err)
		seen += len(resp.AuditLogs)
		if !resp.HasMore {
			break
		}
		require.NotEmpty(t, resp.NextPageToken)
		token = resp.NextPageToken
	}
	assert.Equal(t, 5, seen)

	_, err := svc.List(ctx, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageToken: "garbage-token", PageSize: 2},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
