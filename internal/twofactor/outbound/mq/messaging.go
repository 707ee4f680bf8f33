package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gatewarden/gatewarden/internal/pkg/idempotency"
	"github.com/gatewarden/gatewarden/internal/pkg/instrument"
	"github.com/gatewarden/gatewarden/internal/pkg/messaging"
	"github.com/gatewarden/gatewarden/internal/shared/event"
	"github.com/gatewarden/gatewarden/internal/twofactor/usecase"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

// integrityDedupWindow bounds how often one user+purpose pair can raise a
// vault integrity alert. Every failed login against a corrupted blob would
// otherwise publish its own event.
const integrityDedupWindow = 10 * time.Minute

type Messaging struct {
	client messaging.Messaging
	idemp  idempotency.Idempotency
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Messaging, idemp idempotency.Idempotency, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, idemp: idemp, ins: ins}
}

func (m *Messaging) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return m.ins.Tracer("twofactor.outbound.mq").Start(ctx, name)
}

// publish marshals and sends one event, retrying transient broker failures
// with capped fibonacci backoff. Events here are security-relevant, so a
// flaky broker should not silently drop them.
func (m *Messaging) publish(ctx context.Context, span trace.Span, destination string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	msg := messaging.OutgoingMessage{
		Body:    body,
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}

	b := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		if _, err := m.client.Publish(ctx, destination, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Messaging) PublishTwoFactorEnabled(ctx context.Context, msg usecase.TwoFactorEvent) error {
	ctx, span := m.startSpan(ctx, "PublishTwoFactorEnabled")
	defer span.End()

	return m.publish(ctx, span, event.TwoFactorEnabledDestination, event.TwoFactorChangedMessage{
		UserID:    msg.UserID,
		Email:     msg.Email,
		ChangedAt: msg.At.UTC().Format(time.RFC3339),
	})
}

func (m *Messaging) PublishTwoFactorDisabled(ctx context.Context, msg usecase.TwoFactorEvent) error {
	ctx, span := m.startSpan(ctx, "PublishTwoFactorDisabled")
	defer span.End()

	return m.publish(ctx, span, event.TwoFactorDisabledDestination, event.TwoFactorChangedMessage{
		UserID:    msg.UserID,
		Email:     msg.Email,
		ChangedAt: msg.At.UTC().Format(time.RFC3339),
	})
}

func (m *Messaging) PublishVaultIntegrity(ctx context.Context, msg usecase.VaultIntegrityEvent) error {
	ctx, span := m.startSpan(ctx, "PublishVaultIntegrity")
	defer span.End()

	key := fmt.Sprintf("vault_integrity:%d:%s", msg.UserID, msg.Purpose)
	err := m.idemp.Exec(ctx, key, func(ctx context.Context) error {
		return m.publish(ctx, span, event.VaultIntegrityDestination, event.VaultIntegrityMessage{
			UserID:     msg.UserID,
			Purpose:    msg.Purpose,
			DetectedAt: msg.At.UTC().Format(time.RFC3339),
		})
	},
		idempotency.WithLockDuration(integrityDedupWindow),
		idempotency.WithStateTTL(integrityDedupWindow),
	)
	if errors.Is(err, idempotency.ErrAlreadyCompleted) || errors.Is(err, idempotency.ErrAlreadyInProgress) {
		return nil
	}

	return err
}
