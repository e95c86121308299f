// Package identity resolves credentials to actors and answers role-level
// capability questions. Ownership checks stay with the use cases.
package identity

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/medisys/clinicore/internal/clock"
	"github.com/medisys/clinicore/internal/config"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed model.conf
var modelText string

const (
	ObjectCatalogTest  = "catalog_test"
	ObjectLabOrder     = "lab_order"
	ObjectBilling      = "billing"
	ObjectPayment      = "payment"
	ObjectReport       = "report"
	ObjectAuditLog     = "audit_log"
	ObjectNotification = "notification"
	ObjectUser         = "user"
)

const (
	ActionCreate = "create"
	ActionView   = "view"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionLabOrderPay     = "lab_order.pay"
	ActionLabOrderProcess = "lab_order.process"
	ActionLabOrderResults = "lab_order.results"
	ActionLabOrderCancel  = "lab_order.cancel"
	ActionPaymentProcess  = "payment.process"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// policies is the static capability table. Admin is handled by the casbin
// matcher and needs no rows here.
var policies = [][3]string{
	// doctor
	{string(userdomain.RoleDoctor), ObjectLabOrder, ActionCreate},
	{string(userdomain.RoleDoctor), ObjectLabOrder, ActionView},
	{string(userdomain.RoleDoctor), ObjectLabOrder, ActionUpdate},
	{string(userdomain.RoleDoctor), ObjectLabOrder, ActionLabOrderCancel},
	{string(userdomain.RoleDoctor), ObjectCatalogTest, ActionView},
	{string(userdomain.RoleDoctor), ObjectBilling, ActionView},
	{string(userdomain.RoleDoctor), ObjectPayment, ActionView},
	{string(userdomain.RoleDoctor), ObjectReport, ActionView},
	{string(userdomain.RoleDoctor), ObjectNotification, ActionView},

	// lab assistant
	{string(userdomain.RoleLabAssistant), ObjectLabOrder, ActionView},
	{string(userdomain.RoleLabAssistant), ObjectLabOrder, ActionLabOrderProcess},
	{string(userdomain.RoleLabAssistant), ObjectLabOrder, ActionLabOrderResults},
	{string(userdomain.RoleLabAssistant), ObjectCatalogTest, ActionView},
	{string(userdomain.RoleLabAssistant), ObjectReport, ActionCreate},
	{string(userdomain.RoleLabAssistant), ObjectReport, ActionView},
	{string(userdomain.RoleLabAssistant), ObjectNotification, ActionView},

	// receptionist
	{string(userdomain.RoleReceptionist), ObjectLabOrder, ActionView},
	{string(userdomain.RoleReceptionist), ObjectLabOrder, ActionLabOrderPay},
	{string(userdomain.RoleReceptionist), ObjectBilling, ActionCreate},
	{string(userdomain.RoleReceptionist), ObjectBilling, ActionView},
	{string(userdomain.RoleReceptionist), ObjectBilling, ActionUpdate},
	{string(userdomain.RoleReceptionist), ObjectPayment, ActionPaymentProcess},
	{string(userdomain.RoleReceptionist), ObjectPayment, ActionView},
	{string(userdomain.RoleReceptionist), ObjectCatalogTest, ActionView},
	{string(userdomain.RoleReceptionist), ObjectNotification, ActionView},

	// patient: record-level ownership is enforced by each use case on top
	// of these role grants.
	{string(userdomain.RolePatient), ObjectLabOrder, ActionView},
	{string(userdomain.RolePatient), ObjectLabOrder, ActionLabOrderPay},
	{string(userdomain.RolePatient), ObjectBilling, ActionView},
	{string(userdomain.RolePatient), ObjectPayment, ActionView},
	{string(userdomain.RolePatient), ObjectNotification, ActionView},
}

type Service interface {
	// Authenticate resolves a bearer token to an active Actor.
	Authenticate(ctx context.Context, token string) (userdomain.Actor, error)
	// IssueToken mints a signed token for the user.
	IssueToken(user *userdomain.User) (string, error)
	// Can answers the role-level capability question.
	Can(role userdomain.Role, object, action string) bool
	// Require returns ErrForbidden unless the actor's role permits the action.
	Require(actor userdomain.Actor, object, action string) error
}

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	UserSvc userdomain.Service
}

type service struct {
	enforcer *casbin.Enforcer
	log      *zap.Logger
	clock    clock.Clock
	userSvc  userdomain.Service
	secret   []byte
	tokenTTL time.Duration
}

func NewService(p Params) (Service, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("parse authorization model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("build enforcer: %w", err)
	}
	for _, rule := range policies {
		if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return nil, fmt.Errorf("add policy %v: %w", rule, err)
		}
	}

	secret := strings.TrimSpace(p.Cfg.AuthJWTSecret)
	if secret == "" {
		secret = "clinicore-dev-secret"
		p.Log.Warn("AUTH_JWT_SECRET not set, using development secret")
	}

	ttl := time.Duration(p.Cfg.AuthTokenTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}

	return &service{
		enforcer: enforcer,
		log:      p.Log.Named("identity.service"),
		clock:    p.Clock,
		userSvc:  p.UserSvc,
		secret:   []byte(secret),
		tokenTTL: ttl,
	}, nil
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *service) IssueToken(user *userdomain.User) (string, error) {
	if user == nil {
		return "", ErrUnauthenticated
	}

	now := s.clock.Now()
	claims := tokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			Issuer:    "clinicore",
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *service) Authenticate(ctx context.Context, token string) (userdomain.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return userdomain.Actor{}, ErrUnauthenticated
	}

	claims := tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !parsed.Valid {
		return userdomain.Actor{}, ErrUnauthenticated
	}

	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil || userID == 0 {
		return userdomain.Actor{}, ErrUnauthenticated
	}
	role, ok := userdomain.ParseRole(claims.Role)
	if !ok {
		return userdomain.Actor{}, ErrUnauthenticated
	}

	// The token is only as good as the account behind it.
	user, err := s.userSvc.GetActive(ctx, userID)
	if err != nil {
		return userdomain.Actor{}, ErrUnauthenticated
	}
	if user.Role != role {
		return userdomain.Actor{}, ErrUnauthenticated
	}

	return user.Actor(), nil
}

func (s *service) Can(role userdomain.Role, object, action string) bool {
	allowed, err := s.enforcer.Enforce(string(role), object, action)
	if err != nil {
		s.log.Warn("capability check failed",
			zap.String("role", string(role)),
			zap.String("object", object),
			zap.String("action", action),
			zap.Error(err),
		)
		return false
	}
	return allowed
}

func (s *service) Require(actor userdomain.Actor, object, action string) error {
	if !s.Can(actor.Role, object, action) {
		return ErrForbidden
	}
	return nil
}

var Module = fx.Module("identity.service",
	fx.Provide(NewService),
)
