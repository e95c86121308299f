package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/medisys/clinicore/internal/clock"
	"github.com/medisys/clinicore/internal/config"
	"github.com/medisys/clinicore/internal/migration"
	"github.com/medisys/clinicore/internal/notification/domain"
	"github.com/medisys/clinicore/internal/notification/repository"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	userrepo "github.com/medisys/clinicore/internal/user/repository"
	userservice "github.com/medisys/clinicore/internal/user/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, userdomain.Service, *snowflake.Node) {
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
	log := zap.NewNop()

	userSvc := userservice.NewService(userservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: userrepo.Provide(),
	})
	svc := NewService(Params{
		Cfg: config.Config{}, DB: db, Log: log, GenID: node, Clock: fakeClock,
		Repo: repository.Provide(), UserSvc: userSvc,
	})
	return svc, userSvc, node
}

func TestNotifyRoleFansOutToActiveUsers(t *testing.T) {
	svc, userSvc, _ := newTestService(t)
	ctx := context.Background()

	var assistants []userdomain.Actor
	for _, email := range []string{"a@clinicore.test", "b@clinicore.test"} {
		user, err := userSvc.Create(ctx, userdomain.CreateUserRequest{
			Role: userdomain.RoleLabAssistant, Email: email, Password: "s3cret-pass",
		})
		require.NoError(t, err)
		assistants = append(assistants, user.Actor())
	}
	inactive, err := userSvc.Create(ctx, userdomain.CreateUserRequest{
		Role: userdomain.RoleLabAssistant, Email: "c@clinicore.test", Password: "s3cret-pass",
	})
	require.NoError(t, err)
	require.NoError(t, userSvc.Deactivate(ctx, inactive.ID))

	svc.NotifyRole(ctx, userdomain.RoleLabAssistant, domain.Message{
		Kind:  domain.KindOrderCreated,
		Title: "New lab order",
		Body:  "Lab order 1 created",
	})

	for _, assistant := range assistants {
		mine, err := svc.ListMine(ctx, assistant, true)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, domain.KindOrderCreated, mine[0].Kind)
	}

	gone, err := svc.ListMine(ctx, inactive.Actor(), false)
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func TestNotifyUserAndMarkRead(t *testing.T) {
	svc, _, node := newTestService(t)
	ctx := context.Background()

	recipient := userdomain.Actor{ID: node.Generate(), Role: userdomain.RolePatient}
	svc.NotifyUser(ctx, recipient.ID, domain.Message{
		Kind:  domain.KindPaymentReceived,
		Title: "Payment received",
		Body:  "Receipt REC-1 issued",
	})

	unread, err := svc.ListMine(ctx, recipient, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	// Someone else cannot mark it read.
	stranger := userdomain.Actor{ID: node.Generate(), Role: userdomain.RolePatient}
	err = svc.MarkRead(ctx, stranger, unread[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.MarkRead(ctx, recipient, unread[0].ID))

	unread, err = svc.ListMine(ctx, recipient, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := svc.ListMine(ctx, recipient, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Read)

	// A zero recipient is silently skipped.
	svc.NotifyUser(ctx, 0, domain.Message{Kind: domain.KindOrderPaid})
}
