// Package watch registers Gmail push-notification subscriptions for
// connected mailboxes.
package watch

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/leadstack/gmail-ingest/internal/auth/constants"
	"github.com/leadstack/gmail-ingest/internal/config"
	"github.com/leadstack/gmail-ingest/internal/logger"
)

// Registrar subscribes a mailbox to push notifications.
type Registrar interface {
	Register(ctx context.Context, token *oauth2.Token) error
}

// GmailRegistrar registers a users.watch subscription publishing INBOX
// changes to the project's gmail-push topic.
type GmailRegistrar struct {
	topicName string
}

func NewGmailRegistrar(cfg *config.Config) *GmailRegistrar {
	return &GmailRegistrar{
		topicName: fmt.Sprintf(constants.WatchTopicFormat, cfg.OAuth.ProjectID),
	}
}

func (r *GmailRegistrar) Register(ctx context.Context, token *oauth2.Token) error {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return fmt.Errorf("create gmail service: %w", err)
	}

	resp, err := svc.Users.Watch("me", &gmail.WatchRequest{
		TopicName:           r.topicName,
		LabelIds:            []string{"INBOX"},
		LabelFilterBehavior: "INCLUDE",
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("register mailbox watch: %w", err)
	}

	logger.Debug("Mailbox watch registered",
		zap.String("topic", r.topicName),
		zap.Uint64("history_id", resp.HistoryId),
		zap.Int64("expiration", resp.Expiration),
	)
	return nil
}

// Module provides the watch dependencies
var Module = fx.Module("watch",
	fx.Provide(
		fx.Annotate(
			NewGmailRegistrar,
			fx.As(new(Registrar)),
		),
	),
)
