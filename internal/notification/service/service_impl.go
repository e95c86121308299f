package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/medisys/clinicore/internal/clock"
	"github.com/medisys/clinicore/internal/config"
	"github.com/medisys/clinicore/internal/notification/domain"
	userdomain "github.com/medisys/clinicore/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg     config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	UserSvc userdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	userSvc userdomain.Service
	timeout time.Duration
}

func NewService(p Params) domain.Service {
	timeout := time.Duration(p.Cfg.NotifyTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("notification.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		userSvc: p.UserSvc,
		timeout: timeout,
	}
}

func (s *Service) NotifyRole(ctx context.Context, role userdomain.Role, msg domain.Message) {
	// Detach from the caller's context so a cancelled request does not
	// abort delivery, but keep the work bounded.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	recipients, err := s.userSvc.ListByRole(ctx, role)
	if err != nil {
		s.log.Warn("notification fanout skipped, recipient lookup failed",
			zap.String("role", string(role)),
			zap.String("kind", msg.Kind),
			zap.Error(err),
		)
		return
	}
	if len(recipients) == 0 {
		return
	}

	now := s.clock.Now()
	notifications := make([]domain.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		notifications = append(notifications, s.build(recipient.ID, msg, now))
	}

	if err := s.repo.InsertBatch(ctx, s.db, notifications); err != nil {
		s.log.Warn("notification fanout failed",
			zap.String("role", string(role)),
			zap.String("kind", msg.Kind),
			zap.Int("recipients", len(notifications)),
			zap.Error(err),
		)
	}
}

func (s *Service) NotifyUser(ctx context.Context, recipientID snowflake.ID, msg domain.Message) {
	if recipientID == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	notification := s.build(recipientID, msg, s.clock.Now())
	if err := s.repo.InsertBatch(ctx, s.db, []domain.Notification{notification}); err != nil {
		s.log.Warn("notification delivery failed",
			zap.String("recipient_id", recipientID.String()),
			zap.String("kind", msg.Kind),
			zap.Error(err),
		)
	}
}

func (s *Service) ListMine(ctx context.Context, actor userdomain.Actor, unreadOnly bool) ([]domain.Notification, error) {
	return s.repo.ListByRecipient(ctx, s.db, actor.ID, unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, actor userdomain.Actor, id snowflake.ID) error {
	return s.repo.MarkRead(ctx, s.db, actor.ID, id)
}

func (s *Service) build(recipientID snowflake.ID, msg domain.Message, now time.Time) domain.Notification {
	notification := domain.Notification{
		ID:          s.genID.Generate(),
		RecipientID: recipientID,
		Kind:        msg.Kind,
		Title:       msg.Title,
		Body:        msg.Body,
		CreatedAt:   now,
	}
	if len(msg.Metadata) > 0 {
		notification.Metadata = datatypes.JSONMap(msg.Metadata)
	}
	return notification
}
