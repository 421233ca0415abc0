package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/payments"
)

// Collaborator interfaces. The reconciler never creates or deletes payment
// rows; it only applies the pending -> terminal transition through the
// store's conditional update.
type ConfigSource interface {
	GetActive(ctx context.Context) (Config, error)
}

type PaymentStore interface {
	Get(ctx context.Context, id int64) (payments.Payment, bool, error)
	SettleIfPending(ctx context.Context, id int64, status, transactionID, method string) (bool, error)
}

type NotificationLog interface {
	Record(ctx context.Context, n *Notification) error
}

// Response codes below 100 are the protocol's "authorized" band; anything
// else, including non-numeric codes, is a decline.
const authorizedCodeCeiling = 100

type ReconcileResult struct {
	PaymentID  int64
	OrderToken string
	Status     string
	// Applied is false when the payment was already in a terminal state and
	// the notification was absorbed as a no-op.
	Applied bool
}

// AlreadyReconciled reports the idempotent no-op case: a re-delivered or
// duplicated notification that found the payment already settled.
func (r ReconcileResult) AlreadyReconciled() bool { return !r.Applied }

type Reconciler struct {
	configs ConfigSource
	store   PaymentStore
	audit   NotificationLog // optional
	logger  *slog.Logger
}

func NewReconciler(configs ConfigSource, store PaymentStore, audit NotificationLog) *Reconciler {
	return &Reconciler{configs: configs, store: store, audit: audit, logger: slog.Default()}
}

func (r *Reconciler) SetLogger(logger *slog.Logger) { r.logger = logger }

// Reconcile applies one inbound notification to a payment's state: decode,
// authenticate, resolve, then settle with an atomic conditional update.
// Every rejection happens before any state change; duplicates settle as
// AlreadyReconciled no-ops, which is what makes gateway retries safe.
func (r *Reconciler) Reconcile(ctx context.Context, merchantParams, signature string) (ReconcileResult, error) {
	received := time.Now()

	cfg, err := r.configs.GetActive(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}
	if !cfg.Complete() {
		return ReconcileResult{}, ErrConfigIncomplete
	}

	params, err := DecodeMerchantParameters(merchantParams)
	if err != nil {
		r.recordRejection(ctx, received, "", nil, merchantParams, signature, err)
		return ReconcileResult{}, err
	}

	token := params[notifyOrderField]
	if token == "" {
		token = params[paramOrder]
	}
	if token == "" {
		err := ErrMissingOrderToken
		r.recordRejection(ctx, received, "", params, merchantParams, signature, err)
		return ReconcileResult{}, err
	}

	// Authenticity gate. The signature covers the envelope exactly as
	// received; nothing else in the payload is trusted before this passes.
	if !Verify(merchantParams, token, signature, cfg.SecretKey, cfg.Alg()) {
		err := ErrInvalidSignature
		r.logger.WarnContext(ctx, "notification signature rejected",
			"order", token, "merchant_code", cfg.MerchantCode)
		r.recordRejection(ctx, received, token, params, merchantParams, signature, err)
		return ReconcileResult{}, err
	}

	id, err := PaymentIDFromToken(token, cfg.Env())
	if err != nil {
		r.recordRejection(ctx, received, token, params, merchantParams, signature, err)
		return ReconcileResult{}, err
	}

	payment, found, err := r.store.Get(ctx, id)
	if err != nil {
		return ReconcileResult{}, err
	}
	if !found {
		// May indicate a cross-environment token collision; operational
		// alert, not fatal.
		err := fmt.Errorf("%w: payment %d", ErrUnknownOrder, id)
		r.logger.WarnContext(ctx, "notification for unknown payment", "order", token, "payment_id", id)
		r.recordRejection(ctx, received, token, params, merchantParams, signature, err)
		return ReconcileResult{}, err
	}

	if payment.Terminal() {
		r.recordOutcome(ctx, received, token, &payment.ID, params, signature, OutcomeAlreadyReconciled, nil)
		return ReconcileResult{PaymentID: payment.ID, OrderToken: token, Status: payment.Status, Applied: false}, nil
	}

	status := payments.StatusFailed
	outcome := OutcomeFailed
	if responseAuthorized(params[notifyResponseField]) {
		status = payments.StatusCompleted
		outcome = OutcomeCompleted
	}

	applied, err := r.store.SettleIfPending(ctx, payment.ID, status, token, GatewayName)
	if err != nil {
		return ReconcileResult{}, err
	}
	if !applied {
		// Lost the race against a concurrent reconciliation; re-read the
		// winner's terminal state and absorb.
		settled, _, err := r.store.Get(ctx, payment.ID)
		if err != nil {
			return ReconcileResult{}, err
		}
		r.recordOutcome(ctx, received, token, &payment.ID, params, signature, OutcomeAlreadyReconciled, nil)
		return ReconcileResult{PaymentID: payment.ID, OrderToken: token, Status: settled.Status, Applied: false}, nil
	}

	r.logger.InfoContext(ctx, "payment reconciled",
		"payment_id", payment.ID, "order", token, "status", status,
		"response_code", params[notifyResponseField])
	r.recordOutcome(ctx, received, token, &payment.ID, params, signature, outcome, nil)

	return ReconcileResult{PaymentID: payment.ID, OrderToken: token, Status: status, Applied: true}, nil
}

func responseAuthorized(code string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return false
	}
	return n >= 0 && n < authorizedCodeCeiling
}

func (r *Reconciler) recordRejection(ctx context.Context, received time.Time, token string, params map[string]string, rawEnvelope, signature string, cause error) {
	msg := cause.Error()
	n := &Notification{
		OrderToken:   token,
		Outcome:      OutcomeRejected,
		ParamsJSON:   paramsJSON(params, rawEnvelope),
		Signature:    truncate(signature, 128),
		ReceivedAt:   received,
		ProcessError: &msg,
	}
	r.record(ctx, n)
}

func (r *Reconciler) recordOutcome(ctx context.Context, received time.Time, token string, paymentID *int64, params map[string]string, signature, outcome string, processErr *string) {
	now := time.Now()
	n := &Notification{
		OrderToken:   token,
		PaymentID:    paymentID,
		Outcome:      outcome,
		ParamsJSON:   paramsJSON(params, ""),
		Signature:    truncate(signature, 128),
		ReceivedAt:   received,
		ProcessedAt:  &now,
		ProcessError: processErr,
	}
	r.record(ctx, n)
}

// record is best effort: the audit trail must never turn a settled
// reconciliation into a gateway-visible failure.
func (r *Reconciler) record(ctx context.Context, n *Notification) {
	if r.audit == nil {
		return
	}
	if err := r.audit.Record(ctx, n); err != nil {
		r.logger.ErrorContext(ctx, "failed to record gateway notification",
			"order", n.OrderToken, "outcome", n.Outcome, "err", err)
	}
}

func paramsJSON(params map[string]string, rawEnvelope string) datatypes.JSON {
	if params == nil {
		raw, _ := json.Marshal(map[string]string{"raw_envelope": truncate(rawEnvelope, 4096)})
		return datatypes.JSON(raw)
	}
	raw, _ := json.Marshal(params)
	return datatypes.JSON(raw)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
