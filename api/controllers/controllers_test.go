package controllers

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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/reports"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	customer = auth.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	admin    = auth.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
)

// serve routes req through a chi router so URL params resolve.
func serve(t *testing.T, method, pattern string, h http.HandlerFunc, req *http.Request, actor *auth.Actor) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error.Code, env.Error.Message
}

type stubCart struct {
	cart.Service
	added struct {
		productID uuid.UUID
		quantity  int
	}
}

func (s *stubCart) AddItem(_ context.Context, actor auth.Actor, productID uuid.UUID, quantity int) (*models.Cart, error) {
	s.added.productID = productID
	s.added.quantity = quantity
	return &models.Cart{ID: uuid.New(), UserID: actor.UserID}, nil
}

func TestCartAddItem(t *testing.T) {
	svc := &stubCart{}
	productID := uuid.New()
	body := `{"product_id":"` + productID.String() + `","quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))

	rr := serve(t, http.MethodPost, "/cart/items", CartAddItem(svc, logger.Nop()), req, &customer)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, productID, svc.added.productID)
	assert.Equal(t, 2, svc.added.quantity)
}

func TestCartAddItemValidation(t *testing.T) {
	cases := map[string]string{
		"missing body":  ``,
		"zero quantity": `{"product_id":"` + uuid.NewString() + `","quantity":0}`,
		"bad uuid":      `{"product_id":"nope","quantity":1}`,
		"unknown field": `{"product_id":"` + uuid.NewString() + `","quantity":1,"price":3}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body))
			rr := serve(t, http.MethodPost, "/cart/items", CartAddItem(&stubCart{}, logger.Nop()), req, &customer)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			code, _ := decodeError(t, rr)
			assert.Equal(t, string(pkgerrors.CodeValidation), code)
		})
	}
}

func TestCartRequiresActor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rr := serve(t, http.MethodGet, "/cart", CartFetch(&stubCart{}, logger.Nop()), req, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

type stubOrders struct {
	orders.Service
	err error
}

func (s *stubOrders) CancelOrderAsCustomer(_ context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: orderID, UserID: actor.UserID, Status: enums.OrderStatusCancelled}, nil
}

func TestCustomerCancelOrder(t *testing.T) {
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/cancel", nil)
	rr := serve(t, http.MethodPost, "/orders/{orderId}/cancel", CustomerCancelOrder(&stubOrders{}, logger.Nop()), req, &customer)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), orderID.String())
	assert.Contains(t, rr.Body.String(), `"cancelled"`)
}

func TestCustomerCancelOrderStateConflict(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, orders.MsgOnlyPendingCancel)}
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/cancel", nil)
	rr := serve(t, http.MethodPost, "/orders/{orderId}/cancel", CustomerCancelOrder(svc, logger.Nop()), req, &customer)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	code, msg := decodeError(t, rr)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), code)
	assert.Equal(t, orders.MsgOnlyPendingCancel, msg)
}

func TestOrderRoutesRejectBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders/not-a-uuid/cancel", nil)
	rr := serve(t, http.MethodPost, "/orders/{orderId}/cancel", CustomerCancelOrder(&stubOrders{}, logger.Nop()), req, &customer)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNilOrdersServiceIsUnavailable(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/complete", nil)
	rr := serve(t, http.MethodPost, "/orders/{orderId}/complete", AdminCompleteOrder(nil, logger.Nop()), req, &admin)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

type stubProducts struct {
	product.Service
	created *product.ProductInput
}

func (s *stubProducts) Create(_ context.Context, _ auth.Actor, input product.ProductInput) (*product.ProductDTO, error) {
	s.created = &input
	return &product.ProductDTO{ID: uuid.New(), Name: input.Name}, nil
}

func TestAdminCreateProduct(t *testing.T) {
	svc := &stubProducts{}
	body := `{"name":"Mug","price":"10.50","stock_quantity":3,"status":"active"}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	rr := serve(t, http.MethodPost, "/products", AdminCreateProduct(svc, logger.Nop()), req, &admin)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.NotNil(t, svc.created)
	assert.True(t, svc.created.Price.Equal(decimal.RequireFromString("10.50")))
	assert.Equal(t, 3, svc.created.StockQuantity)
	assert.Equal(t, enums.ProductStatusActive, svc.created.Status)
}

func TestAdminCreateProductRejectsNegativeStock(t *testing.T) {
	svc := &stubProducts{}
	body := `{"name":"Mug","price":"10.50","stock_quantity":-1}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	rr := serve(t, http.MethodPost, "/products", AdminCreateProduct(svc, logger.Nop()), req, &admin)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Nil(t, svc.created)
}

type stubNotifications struct {
	notifications.Service
	params notifications.ListParams
}

func (s *stubNotifications) List(_ context.Context, _ auth.Actor, params notifications.ListParams) ([]models.Notification, error) {
	s.params = params
	return []models.Notification{{ID: uuid.New(), Kind: enums.NotificationKindNewOrder, Title: "New order"}}, nil
}

func (s *stubNotifications) MarkAllRead(context.Context, auth.Actor) (int64, error) {
	return 3, nil
}

func TestListNotifications(t *testing.T) {
	svc := &stubNotifications{}
	req := httptest.NewRequest(http.MethodGet, "/notifications?limit=5&unread_only=true", nil)
	rr := serve(t, http.MethodGet, "/notifications", ListNotifications(svc, logger.Nop()), req, &customer)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 5, svc.params.Limit)
	assert.True(t, svc.params.UnreadOnly)
	assert.Contains(t, rr.Body.String(), "New order")
}

func TestMarkAllNotificationsRead(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/notifications/read-all", nil)
	rr := serve(t, http.MethodPost, "/notifications/read-all", MarkAllNotificationsRead(&stubNotifications{}, logger.Nop()), req, &customer)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":{"updated":3}}`, rr.Body.String())
}

type stubReports struct {
	from, to time.Time
}

func (s *stubReports) AggregateForPeriod(_ context.Context, from, to time.Time) (reports.Totals, error) {
	s.from, s.to = from, to
	return reports.Totals{TotalSales: decimal.RequireFromString("12.5"), TotalOrders: 1}, nil
}

func (s *stubReports) AggregateForPeriodByCreator(context.Context, time.Time, time.Time) ([]reports.CreatorReport, error) {
	return nil, nil
}

func TestAdminSalesReportDateBounds(t *testing.T) {
	svc := &stubReports{}
	req := httptest.NewRequest(http.MethodGet, "/reports/sales?from=2026-03-01&to=2026-03-02", nil)
	rr := serve(t, http.MethodGet, "/reports/sales", AdminSalesReport(svc, time.UTC, logger.Nop()), req, &admin)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), svc.from)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), svc.to)
	assert.Contains(t, rr.Body.String(), `"12.50"`)
}

func TestAdminSalesReportDefaultsToToday(t *testing.T) {
	svc := &stubReports{}
	req := httptest.NewRequest(http.MethodGet, "/reports/sales", nil)
	rr := serve(t, http.MethodGet, "/reports/sales", AdminSalesReport(svc, time.UTC, logger.Nop()), req, &admin)

	require.Equal(t, http.StatusOK, rr.Code)
	from, to := reports.DayWindow(time.Now(), time.UTC)
	assert.Equal(t, from, svc.from)
	assert.Equal(t, to, svc.to)
}

func TestAdminSalesReportBadDate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reports/sales?from=yesterday", nil)
	rr := serve(t, http.MethodGet, "/reports/sales", AdminSalesReport(&stubReports{}, time.UTC, logger.Nop()), req, &admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminSalesReportInvertedRange(t *testing.T) {
	svc := &stubReports{}
	req := httptest.NewRequest(http.MethodGet, "/reports/sales?from=2026-03-05&to=2026-03-01", nil)
	rr := serve(t, http.MethodGet, "/reports/sales", AdminSalesReport(svc, time.UTC, logger.Nop()), req, &admin)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "VALIDATION_ERROR")
	assert.True(t, svc.from.IsZero(), "service must not be called")
}
