package identity

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/medisys/clinicore/internal/clock"
	"github.com/medisys/clinicore/internal/config"
	"github.com/medisys/clinicore/internal/migration"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	userrepo "github.com/medisys/clinicore/internal/user/repository"
	userservice "github.com/medisys/clinicore/internal/user/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestIdentity(t *testing.T) (Service, userdomain.Service, *clock.FakeClock) {
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

	svc, err := NewService(Params{
		Cfg:     config.Config{AuthJWTSecret: "test-secret", AuthTokenTTLMin: 30},
		Log:     log,
		Clock:   fakeClock,
		UserSvc: userSvc,
	})
	require.NoError(t, err)
	return svc, userSvc, fakeClock
}

func TestCan_CapabilityTable(t *testing.T) {
	svc, _, _ := newTestIdentity(t)

	cases := []struct {
		role    userdomain.Role
		object  string
		action  string
		allowed bool
	}{
		{userdomain.RoleDoctor, ObjectLabOrder, ActionCreate, true},
		{userdomain.RoleDoctor, ObjectLabOrder, ActionLabOrderCancel, true},
		{userdomain.RoleDoctor, ObjectLabOrder, ActionLabOrderProcess, false},
		{userdomain.RoleDoctor, ObjectCatalogTest, ActionCreate, false},
		{userdomain.RoleDoctor, ObjectAuditLog, ActionView, false},

		{userdomain.RoleLabAssistant, ObjectLabOrder, ActionLabOrderProcess, true},
		{userdomain.RoleLabAssistant, ObjectLabOrder, ActionLabOrderResults, true},
		{userdomain.RoleLabAssistant, ObjectLabOrder, ActionCreate, false},
		{userdomain.RoleLabAssistant, ObjectBilling, ActionView, false},

		{userdomain.RoleReceptionist, ObjectBilling, ActionCreate, true},
		{userdomain.RoleReceptionist, ObjectPayment, ActionPaymentProcess, true},
		{userdomain.RoleReceptionist, ObjectLabOrder, ActionCreate, false},
		{userdomain.RoleReceptionist, ObjectLabOrder, ActionLabOrderResults, false},

		{userdomain.RolePatient, ObjectLabOrder, ActionView, true},
		{userdomain.RolePatient, ObjectLabOrder, ActionLabOrderPay, true},
		{userdomain.RolePatient, ObjectLabOrder, ActionCreate, false},
		{userdomain.RolePatient, ObjectUser, ActionCreate, false},

		// Admin bypasses the policy table entirely.
		{userdomain.RoleAdmin, ObjectUser, ActionCreate, true},
		{userdomain.RoleAdmin, ObjectAuditLog, ActionView, true},
		{userdomain.RoleAdmin, ObjectLabOrder, ActionLabOrderResults, true},

		{"intruder", ObjectLabOrder, ActionView, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, svc.Can(tc.role, tc.object, tc.action),
			"role=%s object=%s action=%s", tc.role, tc.object, tc.action)
	}
}

func TestRequire(t *testing.T) {
	svc, _, _ := newTestIdentity(t)

	doctor := userdomain.Actor{ID: 1, Role: userdomain.RoleDoctor}
	assert.NoError(t, svc.Require(doctor, ObjectLabOrder, ActionCreate))
	assert.ErrorIs(t, svc.Require(doctor, ObjectLabOrder, ActionLabOrderProcess), ErrForbidden)
}

func TestTokenRoundTrip(t *testing.T) {
	svc, userSvc, _ := newTestIdentity(t)
	ctx := context.Background()

	user, err := userSvc.Create(ctx, userdomain.CreateUserRequest{
		Role:      userdomain.RoleDoctor,
		Email:     "doctor@clinicore.test",
		Password:  "s3cret-pass",
		FirstName: "Dana",
		LastName:  "Osei",
	})
	require.NoError(t, err)

	token, err := svc.IssueToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	actor, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.ID)
	assert.Equal(t, userdomain.RoleDoctor, actor.Role)
}

func TestAuthenticate_Rejections(t *testing.T) {
	svc, userSvc, fakeClock := newTestIdentity(t)
	ctx := context.Background()

	user, err := userSvc.Create(ctx, userdomain.CreateUserRequest{
		Role:      userdomain.RoleReceptionist,
		Email:     "frontdesk@clinicore.test",
		Password:  "s3cret-pass",
		FirstName: "Femi",
		LastName:  "Adeyemi",
	})
	require.NoError(t, err)

	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Authenticate(ctx, token+"tampered")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Expired tokens stop working.
	fakeClock.Advance(31 * time.Minute)
	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	fakeClock.Advance(-31 * time.Minute)

	// Deactivated accounts invalidate outstanding tokens.
	actor, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	require.NoError(t, userSvc.Deactivate(ctx, actor.ID))

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
