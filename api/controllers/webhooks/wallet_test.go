package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/momo"
)

type fakeWalletService struct {
	calls    int
	err      error
	lastBody momo.CallbackPayload
}

func (f *fakeWalletService) HandleIPN(ctx context.Context, payload momo.CallbackPayload) error {
	f.calls++
	f.lastBody = payload
	return f.err
}

func TestWalletIPN_DecodesAndAcks(t *testing.T) {
	service := &fakeWalletService{}
	handler := WalletIPN(service, nil)

	body := `{
		"partnerCode":"STOREFRONT",
		"orderId":"ord_abc123",
		"requestId":"req-1",
		"amount":230000,
		"transId":987654,
		"resultCode":0,
		"message":"Successful.",
		"signature":"deadbeef",
		"promotionInfo":"new-field-from-gateway"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/wallet", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
	if service.lastBody.OrderID != "ord_abc123" || service.lastBody.TransID != 987654 {
		t.Fatalf("payload not decoded: %+v", service.lastBody)
	}
}

func TestWalletIPN_RejectsMalformedBody(t *testing.T) {
	service := &fakeWalletService{}
	handler := WalletIPN(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/wallet", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on malformed body")
	}
}

func TestWalletIPN_ServiceErrorSurfaces(t *testing.T) {
	service := &fakeWalletService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature")}
	handler := WalletIPN(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/wallet", strings.NewReader(`{"orderId":"ord_x","resultCode":0}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
