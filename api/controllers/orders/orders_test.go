package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/api/middleware"
	"github.com/thanhhuy/storefront-backend/internal/checkout"
	internalorders "github.com/thanhhuy/storefront-backend/internal/orders"
	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
)

type stubCheckoutService struct {
	placeOrder func(ctx context.Context, input checkout.PlaceOrderInput) (*checkout.PlaceOrderResult, error)
}

func (s *stubCheckoutService) PlaceOrder(ctx context.Context, input checkout.PlaceOrderInput) (*checkout.PlaceOrderResult, error) {
	if s.placeOrder != nil {
		return s.placeOrder(ctx, input)
	}
	return nil, nil
}

type stubRollbackService struct {
	rollback     func(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
	cancelByUser func(ctx context.Context, orderID, userID uuid.UUID, reason string) (*models.Order, error)
}

func (s *stubRollbackService) Rollback(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	if s.rollback != nil {
		return s.rollback(ctx, orderID, reason)
	}
	return nil, nil
}

func (s *stubRollbackService) CancelByUser(ctx context.Context, orderID, userID uuid.UUID, reason string) (*models.Order, error) {
	if s.cancelByUser != nil {
		return s.cancelByUser(ctx, orderID, userID, reason)
	}
	return nil, nil
}

type stubOrdersRepo struct {
	findByID func(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) internalorders.Repository {
	return s
}

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findByID != nil {
		return s.findByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindByPaymentIntentRef(ctx context.Context, ref string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindByGatewayIntentRef(ctx context.Context, ref string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) SetGatewayIntentRef(ctx context.Context, id uuid.UUID, ref string) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	panic("not implemented")
}

func authedRequest(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withOrderParam(req *http.Request, orderID uuid.UUID) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("id", orderID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestCreateOrderSuccess(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	svc := &stubCheckoutService{
		placeOrder: func(ctx context.Context, input checkout.PlaceOrderInput) (*checkout.PlaceOrderResult, error) {
			if input.UserID != userID {
				t.Fatalf("unexpected user id %s", input.UserID)
			}
			if len(input.Lines) != 1 || input.Lines[0].ProductID != productID || input.Lines[0].Qty != 2 {
				t.Fatalf("unexpected cart lines %+v", input.Lines)
			}
			if input.PaymentMethod != enums.PaymentMethodCOD {
				t.Fatalf("unexpected payment method %s", input.PaymentMethod)
			}
			if input.IdempotencyKey != "retry-key-1" {
				t.Fatalf("idempotency key not taken from header: %q", input.IdempotencyKey)
			}
			return &checkout.PlaceOrderResult{
				Order: &models.Order{ID: uuid.New(), UserID: userID, Amount: 230000},
			}, nil
		},
	}

	body := `{
		"items":[{"product_id":"` + productID.String() + `","qty":2,"unit_price":100000}],
		"payment_method":"cod",
		"phone_number":"+84901234567",
		"shipping_address":{"line1":"1 Le Loi","ward":"Ben Nghe","district":"1","province":"Ho Chi Minh","country":"VN"},
		"client_amount":230000
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "retry-key-1")
	req = authedRequest(req, userID)

	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data checkout.PlaceOrderResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order == nil || envelope.Data.Order.Amount != 230000 {
		t.Fatalf("unexpected order in response")
	}
}

func TestCreateOrderReplayedReturnsOK(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{
		placeOrder: func(ctx context.Context, input checkout.PlaceOrderInput) (*checkout.PlaceOrderResult, error) {
			return &checkout.PlaceOrderResult{
				Order:    &models.Order{ID: uuid.New(), UserID: userID},
				Replayed: true,
			}, nil
		},
	}

	body := `{
		"items":[{"product_id":"` + uuid.NewString() + `","qty":1}],
		"payment_method":"cod",
		"phone_number":"+84901234567",
		"shipping_address":{"line1":"1 Le Loi","ward":"Ben Nghe","district":"1","province":"Ho Chi Minh","country":"VN"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(req, userID)

	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for replay got %d", resp.Code)
	}
}

func TestCreateOrderRequiresAuthentication(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	Create(&stubCheckoutService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreateOrderRejectsUnknownPaymentMethod(t *testing.T) {
	body := `{
		"items":[{"product_id":"` + uuid.NewString() + `","qty":1}],
		"payment_method":"barter",
		"phone_number":"+84901234567",
		"shipping_address":{"line1":"1 Le Loi","ward":"Ben Nghe","district":"1","province":"Ho Chi Minh","country":"VN"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(req, uuid.New())

	resp := httptest.NewRecorder()
	Create(&stubCheckoutService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGetOrderMasksForeignOrder(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, UserID: uuid.New()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = withOrderParam(req, orderID)
	req = authedRequest(req, uuid.New())

	resp := httptest.NewRecorder()
	Get(repo, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign order got %d", resp.Code)
	}
}

func TestGetOrderSuccess(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	repo := &stubOrdersRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, UserID: userID, Amount: 150000}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	req = withOrderParam(req, orderID)
	req = authedRequest(req, userID)

	resp := httptest.NewRecorder()
	Get(repo, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data models.Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Amount != 150000 {
		t.Fatalf("unexpected amount %d", envelope.Data.Amount)
	}
}

func TestCancelOrderDefaultsReason(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	called := false
	svc := &stubRollbackService{
		cancelByUser: func(ctx context.Context, gotOrder, gotUser uuid.UUID, reason string) (*models.Order, error) {
			if gotOrder != orderID || gotUser != userID {
				t.Fatalf("unexpected ids %s %s", gotOrder, gotUser)
			}
			if reason != "canceled by customer" {
				t.Fatalf("unexpected reason %q", reason)
			}
			called = true
			return &models.Order{ID: gotOrder, UserID: gotUser, Status: enums.OrderStatusCanceled}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", nil)
	req = withOrderParam(req, orderID)
	req = authedRequest(req, userID)

	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatalf("service not invoked")
	}
}

func TestCancelOrderPassesBodyReason(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubRollbackService{
		cancelByUser: func(ctx context.Context, gotOrder, gotUser uuid.UUID, reason string) (*models.Order, error) {
			if reason != "ordered by mistake" {
				t.Fatalf("unexpected reason %q", reason)
			}
			return &models.Order{ID: gotOrder, UserID: gotUser}, nil
		},
	}

	body := strings.NewReader(`{"reason":"ordered by mistake"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", body)
	req.Header.Set("Content-Type", "application/json")
	req = withOrderParam(req, orderID)
	req = authedRequest(req, userID)

	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRollbackInventorySuccess(t *testing.T) {
	orderID := uuid.New()
	called := false
	svc := &stubRollbackService{
		rollback: func(ctx context.Context, gotOrder uuid.UUID, reason string) (*models.Order, error) {
			if gotOrder != orderID {
				t.Fatalf("unexpected order id %s", gotOrder)
			}
			if reason != "inventory rollback requested" {
				t.Fatalf("unexpected reason %q", reason)
			}
			called = true
			return &models.Order{ID: gotOrder, Status: enums.OrderStatusCanceled}, nil
		},
	}

	body := strings.NewReader(`{"order_id":"` + orderID.String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/rollback-inventory", body)
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	RollbackInventory(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatalf("service not invoked")
	}
}

func TestRollbackInventoryRejectsMalformedID(t *testing.T) {
	body := strings.NewReader(`{"order_id":"not-a-uuid"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/rollback-inventory", body)
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	RollbackInventory(&stubRollbackService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
