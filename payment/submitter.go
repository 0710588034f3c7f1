// Package payment turns a quotation into an issued policy.
package payment

import (
	"context"
	"fmt"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/internal/metrics"
	"go.pilab.hu/portal/log"
)

// Payer is the remote payment contract.
type Payer interface {
	Pay(ctx context.Context, quoteID string) (string, error)
}

// IssuedLoader loads an issued policy after payment.
type IssuedLoader interface {
	LoadIssued(ctx context.Context, userPolicyID string) (domain.IssuedPolicy, error)
}

// Submitter pays quotations. It never retries: a failed payment is retried
// by the user calling Pay again.
type Submitter struct {
	payer  Payer
	loader IssuedLoader
	logger log.Logger
}

// NewSubmitter creates a submitter. loader may be nil, in which case only
// the policy id is returned.
func NewSubmitter(payer Payer, loader IssuedLoader, logger log.Logger) *Submitter {
	if logger == nil {
		logger = log.Nop()
	}
	return &Submitter{payer: payer, loader: loader, logger: logger.With(map[string]interface{}{"component": "payment"})}
}

// Pay finalizes quoteID. On success the returned policy always carries its
// UserPolicyID; the remaining fields are filled when the follow-up load
// succeeds.
func (s *Submitter) Pay(ctx context.Context, quoteID string) (domain.IssuedPolicy, error) {
	if quoteID == "" {
		return domain.IssuedPolicy{}, perrors.ErrNoQuotation
	}

	id, err := s.payer.Pay(ctx, quoteID)
	if err == nil && id == "" {
		err = perrors.NewServer(0, "invalid_response", "", "/insurance/payment")
	}
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues("failed").Inc()
		s.logger.Warn(ctx, "payment failed", map[string]interface{}{"quote_id": quoteID, "kind": string(perrors.KindOf(err))})
		return domain.IssuedPolicy{}, fmt.Errorf("pay quotation %s: %w", quoteID, err)
	}
	metrics.PaymentsTotal.WithLabelValues("ok").Inc()
	s.logger.Info(ctx, "policy issued", map[string]interface{}{"quote_id": quoteID, "user_policy_id": id})

	issued := domain.IssuedPolicy{UserPolicyID: id}
	if s.loader == nil {
		return issued, nil
	}
	loaded, err := s.loader.LoadIssued(ctx, id)
	if err != nil {
		s.logger.Warn(ctx, "issued policy could not be loaded", map[string]interface{}{"user_policy_id": id, "error": err.Error()})
		return issued, nil
	}
	if loaded.UserPolicyID == "" {
		loaded.UserPolicyID = id
	}
	return loaded, nil
}
