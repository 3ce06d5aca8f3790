package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/internal/checkout"
	internalorders "github.com/thanhhuy/storefront-backend/internal/orders"
	"github.com/thanhhuy/storefront-backend/internal/shipping"
	pkgauth "github.com/thanhhuy/storefront-backend/pkg/auth"
	"github.com/thanhhuy/storefront-backend/pkg/config"
	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	"github.com/thanhhuy/storefront-backend/pkg/logger"
	"github.com/thanhhuy/storefront-backend/pkg/momo"
	"github.com/thanhhuy/storefront-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) PlaceOrder(ctx context.Context, input checkout.PlaceOrderInput) (*checkout.PlaceOrderResult, error) {
	return &checkout.PlaceOrderResult{
		Order: &models.Order{ID: uuid.New(), UserID: input.UserID},
	}, nil
}

type stubRollbackService struct{}

func (stubRollbackService) Rollback(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	return &models.Order{ID: orderID, Status: enums.OrderStatusCanceled}, nil
}

func (stubRollbackService) CancelByUser(ctx context.Context, orderID, userID uuid.UUID, reason string) (*models.Order, error) {
	return &models.Order{ID: orderID, UserID: userID, Status: enums.OrderStatusCanceled}, nil
}

type stubShippingService struct{}

func (stubShippingService) Quote(ctx context.Context, input shipping.QuoteInput) (*shipping.Quote, error) {
	return &shipping.Quote{BaseFee: 30000, Total: 30000}, nil
}

type stubWalletWebhookService struct{}

func (stubWalletWebhookService) HandleIPN(ctx context.Context, payload momo.CallbackPayload) error {
	return nil
}

type stubCardWebhookService struct{}

func (stubCardWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	return nil
}

type stubSigningClient struct{}

func (stubSigningClient) SigningSecret() string {
	return "whsec_test"
}

type stubRouterOrdersRepo struct{}

func (s *stubRouterOrdersRepo) WithTx(tx *gorm.DB) internalorders.Repository {
	return s
}

func (s *stubRouterOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubRouterOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRouterOrdersRepo) FindByPaymentIntentRef(ctx context.Context, ref string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubRouterOrdersRepo) FindByGatewayIntentRef(ctx context.Context, ref string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubRouterOrdersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	panic("not implemented")
}

func (s *stubRouterOrdersRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	panic("not implemented")
}

func (s *stubRouterOrdersRepo) SetGatewayIntentRef(ctx context.Context, id uuid.UUID, ref string) error {
	panic("not implemented")
}

func (s *stubRouterOrdersRepo) CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	panic("not implemented")
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]string)
	}
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("thstore:idempotency:%s:%s", scope, id)
}

func (s *memoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	guard, err := redis.NewIdempotencyGuard(&memoryStore{}, time.Minute, "webhook:card")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubCheckoutService{},
		&stubRouterOrdersRepo{},
		stubRollbackService{},
		stubShippingService{},
		stubWalletWebhookService{},
		stubCardWebhookService{},
		stubSigningClient{},
		guard,
	)
}

func buildToken(t *testing.T, cfg *config.Config, role pkgauth.Role) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenClaims{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func orderBody() string {
	return `{
		"items":[{"product_id":"` + uuid.NewString() + `","qty":1}],
		"payment_method":"cod",
		"phone_number":"+84901234567",
		"shipping_address":{"line1":"1 Le Loi","ward":"Ben Nghe","district":"1","province":"Ho Chi Minh","country":"VN"}
	}`
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if env := resp.Header().Get("X-Storefront-Env"); env != "test" {
		t.Fatalf("unexpected env header %q", env)
	}
}

func TestOrdersRequireJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(orderBody()))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestOrdersSucceedWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(orderBody()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgauth.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestRollbackInventoryRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	body := `{"order_id":"` + uuid.NewString() + `"}`

	user := httptest.NewRequest(http.MethodPost, "/api/v1/orders/rollback-inventory", strings.NewReader(body))
	user.Header.Set("Content-Type", "application/json")
	user.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgauth.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, user)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, "/api/v1/orders/rollback-inventory", strings.NewReader(body))
	admin.Header.Set("Content-Type", "application/json")
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, pkgauth.RoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestCancelOrderRequiresJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/cancel", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestWalletCallbackIsPublic(t *testing.T) {
	router := newTestRouter(t, testConfig())
	body := `{"orderId":"ord_abc","resultCode":0,"transId":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback/wallet", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestShippingQuoteIsPublic(t *testing.T) {
	router := newTestRouter(t, testConfig())
	body := `{
		"address":{"line1":"1 Le Loi","ward":"Ben Nghe","district":"1","province":"Ho Chi Minh","country":"VN"},
		"order_amount":120000
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipping/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
}
