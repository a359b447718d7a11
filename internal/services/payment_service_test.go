package service

import (
	"context"
	"testing"
	"time"

	"github.com/safehold/escrowpay/internal/infrastructure/gateway"
	"github.com/safehold/escrowpay/internal/models"
	pkgerrors "github.com/safehold/escrowpay/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const callbackURL = "http://localhost:3000/payments/callback"

func newPaymentService(escrows *fakeEscrowRepo, redisClient *fakeRedis, producer *fakeProducer, gw *fakeGateway) *paymentService {
	return NewPaymentService(escrows, testUsers(), redisClient, producer, []gateway.Client{gw}, callbackURL)
}

func TestPaymentService_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		escrows := newFakeEscrowRepo(testEscrow(models.StatusAccepted))
		gw := &fakeGateway{method: gateway.MethodPaystack, initURL: "https://checkout.paystack.com/abc"}
		svc := newPaymentService(escrows, newFakeRedis(), &fakeProducer{}, gw)

		url, err := svc.Initialize(ctx, 1, buyerID, gateway.MethodPaystack)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.paystack.com/abc", url)

		// The gateway charges the buyer total, not the bare amount.
		require.NotNil(t, gw.lastInit)
		assert.Equal(t, int64(10_200), gw.lastInit.Amount)
		assert.Equal(t, "ref-0001", gw.lastInit.Reference)
		assert.Equal(t, "buyer@example.com", gw.lastInit.Email)
		assert.Equal(t, callbackURL, gw.lastInit.CallbackURL)

		stored, err := escrows.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, string(gateway.MethodPaystack), stored.Payment.Method)
		assert.Equal(t, "ref-0001", stored.Payment.Reference)
		assert.Nil(t, stored.Payment.PaidAt)
	})

	t.Run("SellerCannotPay", func(t *testing.T) {
		escrows := newFakeEscrowRepo(testEscrow(models.StatusAccepted))
		gw := &fakeGateway{method: gateway.MethodPaystack, initURL: "https://x"}
		svc := newPaymentService(escrows, newFakeRedis(), &fakeProducer{}, gw)

		_, err := svc.Initialize(ctx, 1, sellerID, gateway.MethodPaystack)
		assert.ErrorIs(t, err, pkgerrors.ErrNotParty)
	})

	t.Run("NotPayableYet", func(t *testing.T) {
		escrows := newFakeEscrowRepo(testEscrow(models.StatusPending))
		gw := &fakeGateway{method: gateway.MethodPaystack, initURL: "https://x"}
		svc := newPaymentService(escrows, newFakeRedis(), &fakeProducer{}, gw)

		_, err := svc.Initialize(ctx, 1, buyerID, gateway.MethodPaystack)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
	})

	t.Run("UnsupportedGateway", func(t *testing.T) {
		escrows := newFakeEscrowRepo(testEscrow(models.StatusAccepted))
		gw := &fakeGateway{method: gateway.MethodPaystack, initURL: "https://x"}
		svc := newPaymentService(escrows, newFakeRedis(), &fakeProducer{}, gw)

		_, err := svc.Initialize(ctx, 1, buyerID, gateway.MethodCrypto)
		assert.ErrorIs(t, err, pkgerrors.ErrUnsupportedGateway)
	})
}

func TestPaymentService_Verify(t *testing.T) {
	ctx := context.Background()

	initialized := func() *models.Escrow {
		e := testEscrow(models.StatusAccepted)
		e.Payment.Method = string(gateway.MethodPaystack)
		e.Payment.Reference = e.Reference
		return e
	}

	t.Run("Success", func(t *testing.T) {
		escrows := newFakeEscrowRepo(initialized())
		producer := &fakeProducer{}
		paidAt := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
		gw := &fakeGateway{
			method: gateway.MethodPaystack,
			verify: &gateway.VerifyResult{Paid: true, Amount: 10_200, Currency: "USD", PaidAt: paidAt},
		}
		svc := newPaymentService(escrows, newFakeRedis(), producer, gw)

		escrow, err := svc.Verify(ctx, "ref-0001")
		require.NoError(t, err)
		assert.Equal(t, models.StatusFunded, escrow.Status)
		require.NotNil(t, escrow.Payment.PaidAt)
		assert.True(t, escrow.Payment.PaidAt.Equal(paidAt))
		assert.Equal(t, "ref-0001", gw.lastVerify)
		assert.Len(t, producer.messages("escrows"), 1)
	})

	t.Run("RepeatedCallbackIsNoOp", func(t *testing.T) {
		e := initialized()
		e.Status = models.StatusFunded
		paidAt := time.Now().UTC()
		e.Payment.PaidAt = &paidAt
		escrows := newFakeEscrowRepo(e)
		producer := &fakeProducer{}
		gw := &fakeGateway{method: gateway.MethodPaystack}
		svc := newPaymentService(escrows, newFakeRedis(), producer, gw)

		escrow, err := svc.Verify(ctx, "ref-0001")
		require.NoError(t, err)
		assert.Equal(t, models.StatusFunded, escrow.Status)
		assert.Empty(t, gw.lastVerify, "no gateway round-trip on a repeated callback")
		assert.Empty(t, producer.messages("escrows"))
	})

	t.Run("ConcurrentVerifyRejected", func(t *testing.T) {
		escrows := newFakeEscrowRepo(initialized())
		redisClient := newFakeRedis()
		redisClient.locked = true
		gw := &fakeGateway{
			method: gateway.MethodPaystack,
			verify: &gateway.VerifyResult{Paid: true, Amount: 10_200},
		}
		svc := newPaymentService(escrows, redisClient, &fakeProducer{}, gw)

		_, err := svc.Verify(ctx, "ref-0001")
		assert.ErrorIs(t, err, pkgerrors.ErrRequestAlreadyProcessed)
	})

	t.Run("NotConfirmed", func(t *testing.T) {
		escrows := newFakeEscrowRepo(initialized())
		gw := &fakeGateway{
			method: gateway.MethodPaystack,
			verify: &gateway.VerifyResult{Paid: false},
		}
		svc := newPaymentService(escrows, newFakeRedis(), &fakeProducer{}, gw)

		_, err := svc.Verify(ctx, "ref-0001")
		assert.ErrorIs(t, err, pkgerrors.ErrPaymentNotConfirmed)

		stored, err := escrows.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, models.StatusAccepted, stored.Status)
	})

	t.Run("Underpayment", func(t *testing.T) {
		escrows := newFakeEscrowRepo(initialized())
		gw := &fakeGateway{
			method: gateway.MethodPaystack,
			verify: &gateway.VerifyResult{Paid: true, Amount: 10_000},
		}
		svc := newPaymentService(escrows, newFakeRedis(), &fakeProducer{}, gw)

		_, err := svc.Verify(ctx, "ref-0001")
		assert.ErrorIs(t, err, pkgerrors.ErrPaymentNotConfirmed)
	})

	t.Run("NeverInitialized", func(t *testing.T) {
		escrows := newFakeEscrowRepo(testEscrow(models.StatusAccepted))
		gw := &fakeGateway{method: gateway.MethodPaystack}
		svc := newPaymentService(escrows, newFakeRedis(), &fakeProducer{}, gw)

		_, err := svc.Verify(ctx, "ref-0001")
		assert.ErrorIs(t, err, pkgerrors.ErrPaymentNotFound)
	})

	t.Run("UnknownReference", func(t *testing.T) {
		escrows := newFakeEscrowRepo()
		gw := &fakeGateway{method: gateway.MethodPaystack}
		svc := newPaymentService(escrows, newFakeRedis(), &fakeProducer{}, gw)

		_, err := svc.Verify(ctx, "ref-missing")
		assert.ErrorIs(t, err, pkgerrors.ErrEscrowNotFound)
	})
}
