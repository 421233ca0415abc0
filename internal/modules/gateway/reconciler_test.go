package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/payments"
)

type fakeConfigSource struct{ cfg Config }

func (f fakeConfigSource) GetActive(context.Context) (Config, error) { return f.cfg, nil }

type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[int64]payments.Payment
	settled  int // transitions actually applied
}

func newFakeStore(ps ...payments.Payment) *fakePaymentStore {
	m := make(map[int64]payments.Payment, len(ps))
	for _, p := range ps {
		m[p.ID] = p
	}
	return &fakePaymentStore{payments: m}
}

func (f *fakePaymentStore) Get(_ context.Context, id int64) (payments.Payment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	return p, ok, nil
}

func (f *fakePaymentStore) SettleIfPending(_ context.Context, id int64, status, transactionID, method string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[id]
	if !ok || p.Status != payments.StatusPending {
		return false, nil
	}

	p.Status = status
	if status == payments.StatusCompleted {
		p.TransactionID = &transactionID
		p.PaymentMethod = &method
		now := time.Now()
		p.CompletedAt = &now
	}
	f.payments[id] = p
	f.settled++
	return true, nil
}

type fakeAudit struct {
	mu    sync.Mutex
	items []Notification
}

func (f *fakeAudit) Record(_ context.Context, n *Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, *n)
	return nil
}

func (f *fakeAudit) outcomes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.items))
	for i, n := range f.items {
		out[i] = n.Outcome
	}
	return out
}

func reconcilerFixture(t *testing.T, ps ...payments.Payment) (*Reconciler, *fakePaymentStore, *fakeAudit, Config) {
	t.Helper()
	cfg := Config{
		GatewayName:      GatewayName,
		MerchantCode:     "999008881",
		Terminal:         "001",
		SecretKey:        testSecret,
		Environment:      string(EnvProduction),
		SignatureVersion: string(AlgHMACSHA256),
		IsActive:         true,
	}
	store := newFakeStore(ps...)
	audit := &fakeAudit{}
	return NewReconciler(fakeConfigSource{cfg}, store, audit), store, audit, cfg
}

func signedNotification(t *testing.T, token, responseCode, secret string) (string, string) {
	t.Helper()
	envelope, err := EncodeMerchantParameters(map[string]string{
		"Ds_Order":    token,
		"Ds_Response": responseCode,
		"Ds_Amount":   "29900",
	})
	require.NoError(t, err)
	sig, err := Sign(envelope, token, secret, AlgHMACSHA256)
	require.NoError(t, err)
	return envelope, sig
}

func TestReconcileAuthorized(t *testing.T) {
	rec, store, audit, _ := reconcilerFixture(t, payments.Payment{ID: 42, Status: payments.StatusPending})

	token, err := OrderToken(42, EnvProduction)
	require.NoError(t, err)
	envelope, sig := signedNotification(t, token, "0000", testSecret)

	result, err := rec.Reconcile(context.Background(), envelope, sig)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.PaymentID)
	assert.Equal(t, payments.StatusCompleted, result.Status)
	assert.True(t, result.Applied)

	p, _, _ := store.Get(context.Background(), 42)
	assert.Equal(t, payments.StatusCompleted, p.Status)
	require.NotNil(t, p.TransactionID)
	assert.Equal(t, token, *p.TransactionID)
	require.NotNil(t, p.PaymentMethod)
	assert.Equal(t, "redsys", *p.PaymentMethod)
	assert.NotNil(t, p.CompletedAt)

	assert.Equal(t, []string{OutcomeCompleted}, audit.outcomes())
}

func TestReconcileDeclined(t *testing.T) {
	rec, store, _, _ := reconcilerFixture(t, payments.Payment{ID: 42, Status: payments.StatusPending})

	token, err := OrderToken(42, EnvProduction)
	require.NoError(t, err)
	// 0180 is outside the 0-99 authorized band.
	envelope, sig := signedNotification(t, token, "0180", testSecret)

	result, err := rec.Reconcile(context.Background(), envelope, sig)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusFailed, result.Status)
	assert.True(t, result.Applied)

	p, _, _ := store.Get(context.Background(), 42)
	assert.Equal(t, payments.StatusFailed, p.Status)
	assert.Nil(t, p.TransactionID)
}

func TestReconcileInvalidSignature(t *testing.T) {
	rec, store, audit, _ := reconcilerFixture(t, payments.Payment{ID: 42, Status: payments.StatusPending})

	token, err := OrderToken(42, EnvProduction)
	require.NoError(t, err)
	// Signed under a different secret: must reject without touching state.
	envelope, sig := signedNotification(t, token, "0000", otherSecret)

	_, err = rec.Reconcile(context.Background(), envelope, sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	p, _, _ := store.Get(context.Background(), 42)
	assert.Equal(t, payments.StatusPending, p.Status)
	assert.Equal(t, []string{OutcomeRejected}, audit.outcomes())
}

func TestReconcileIdempotent(t *testing.T) {
	rec, store, audit, _ := reconcilerFixture(t, payments.Payment{ID: 42, Status: payments.StatusPending})

	token, err := OrderToken(42, EnvProduction)
	require.NoError(t, err)
	envelope, sig := signedNotification(t, token, "0000", testSecret)

	first, err := rec.Reconcile(context.Background(), envelope, sig)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	// Byte-identical redelivery: no second write, success-as-no-op.
	second, err := rec.Reconcile(context.Background(), envelope, sig)
	require.NoError(t, err)
	assert.True(t, second.AlreadyReconciled())
	assert.Equal(t, payments.StatusCompleted, second.Status)

	assert.Equal(t, 1, store.settled)
	assert.Equal(t, []string{OutcomeCompleted, OutcomeAlreadyReconciled}, audit.outcomes())
}

func TestReconcileTerminalStatesAbsorb(t *testing.T) {
	rec, store, _, _ := reconcilerFixture(t, payments.Payment{ID: 42, Status: payments.StatusFailed})

	token, err := OrderToken(42, EnvProduction)
	require.NoError(t, err)
	// Even an authorized notification cannot resurrect a failed payment.
	envelope, sig := signedNotification(t, token, "0000", testSecret)

	result, err := rec.Reconcile(context.Background(), envelope, sig)
	require.NoError(t, err)
	assert.True(t, result.AlreadyReconciled())
	assert.Equal(t, payments.StatusFailed, result.Status)
	assert.Equal(t, 0, store.settled)
}

func TestReconcileConcurrentDuplicates(t *testing.T) {
	rec, store, _, _ := reconcilerFixture(t, payments.Payment{ID: 42, Status: payments.StatusPending})

	token, err := OrderToken(42, EnvProduction)
	require.NoError(t, err)
	envelope, sig := signedNotification(t, token, "0000", testSecret)

	results := make(chan ReconcileResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := rec.Reconcile(context.Background(), envelope, sig)
			assert.NoError(t, err)
			results <- r
		}()
	}
	wg.Wait()
	close(results)

	applied := 0
	for r := range results {
		assert.Equal(t, payments.StatusCompleted, r.Status)
		if r.Applied {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one reconciliation applies the transition")
	assert.Equal(t, 1, store.settled)

	p, _, _ := store.Get(context.Background(), 42)
	assert.Equal(t, payments.StatusCompleted, p.Status)
}

func TestReconcileMalformedEnvelope(t *testing.T) {
	rec, _, audit, _ := reconcilerFixture(t)

	_, err := rec.Reconcile(context.Background(), "%%%garbage%%%", "sig")
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
	assert.Equal(t, []string{OutcomeRejected}, audit.outcomes())
}

func TestReconcileMissingOrderToken(t *testing.T) {
	rec, _, _, _ := reconcilerFixture(t)

	envelope, err := EncodeMerchantParameters(map[string]string{"Ds_Response": "0000"})
	require.NoError(t, err)

	_, err = rec.Reconcile(context.Background(), envelope, "sig")
	assert.ErrorIs(t, err, ErrMissingOrderToken)
}

func TestReconcileUnknownOrder(t *testing.T) {
	rec, _, _, _ := reconcilerFixture(t) // empty store

	token, err := OrderToken(999, EnvProduction)
	require.NoError(t, err)
	envelope, sig := signedNotification(t, token, "0000", testSecret)

	_, err = rec.Reconcile(context.Background(), envelope, sig)
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestReconcileMalformedToken(t *testing.T) {
	rec, _, _, _ := reconcilerFixture(t)

	// Token of the wrong width: signature can still be valid over it, but it
	// cannot carry a payment id.
	token := "42"
	envelope, sig := signedNotification(t, token, "0000", testSecret)

	_, err := rec.Reconcile(context.Background(), envelope, sig)
	assert.ErrorIs(t, err, ErrMalformedOrder)
}

func TestReconcileConfigIncomplete(t *testing.T) {
	cfg := Config{GatewayName: GatewayName, Environment: string(EnvTest)}
	rec := NewReconciler(fakeConfigSource{cfg}, newFakeStore(), nil)

	_, err := rec.Reconcile(context.Background(), "e30=", "sig")
	assert.ErrorIs(t, err, ErrConfigIncomplete)
}

func TestReconcileNonNumericResponseIsDecline(t *testing.T) {
	rec, store, _, _ := reconcilerFixture(t, payments.Payment{ID: 42, Status: payments.StatusPending})

	token, err := OrderToken(42, EnvProduction)
	require.NoError(t, err)
	envelope, sig := signedNotification(t, token, "SIS0051", testSecret)

	result, err := rec.Reconcile(context.Background(), envelope, sig)
	require.NoError(t, err)
	assert.Equal(t, payments.StatusFailed, result.Status)

	p, _, _ := store.Get(context.Background(), 42)
	assert.Equal(t, payments.StatusFailed, p.Status)
}
