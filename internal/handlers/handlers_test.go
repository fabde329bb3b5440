package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/gin-gonic/gin"

	"foodhub/internal/auth"
	"foodhub/internal/events"
	"foodhub/internal/mailer"
	"foodhub/internal/payments"
	"foodhub/internal/services"
	"foodhub/internal/store/memstore"
)

type stubMedia struct {
	saved   []string
	deleted []string
}

func (m *stubMedia) Save(file *multipart.FileHeader) (string, error) {
	path := "uploads/foods/" + file.Filename
	m.saved = append(m.saved, path)
	return path, nil
}

func (m *stubMedia) Delete(relPath string) error {
	m.deleted = append(m.deleted, relPath)
	return nil
}

const testCallbackToken = "cb-secret"

type quietMailer struct{}

func (quietMailer) Send(ctx context.Context, msg mailer.Message) error { return nil }

type testServer struct {
	router *gin.Engine
	store  *memstore.Store
	media  *stubMedia
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenService(auth.TokenConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	st := memstore.New()
	images := &stubMedia{}
	hasher := auth.NewArgon2Hasher(&argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})

	r := gin.New()
	SetupRoutes(r, App{
		DB:     st,
		Tokens: tokens,
		Auth: services.NewAuthService(st, tokens, hasher, quietMailer{}, services.AuthConfig{
			AllowPrivilegedSignup: true,
			PublicBaseURL:         "http://localhost:8080",
		}),
		Carts:   services.NewCartService(st),
		Orders: services.NewOrderService(st, st, st, st, payments.OfflineGateway{}, events.LogPublisher{}, services.OrderConfig{
			DeliveryFee:            services.DefaultDeliveryFee,
			CallbackLookupAttempts: 1,
		}),
		Catalog:            services.NewCatalogService(st, images, nil),
		Bikers:             services.NewBikerService(st),
		Media:              images,
		MpesaCallbackToken: testCallbackToken,
	})
	return &testServer{router: r, store: st, media: images}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var out map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func (s *testServer) register(t *testing.T, name, email, role string) string {
	t.Helper()
	w, body := s.do(t, http.MethodPost, "/user/register", "", gin.H{
		"name": name, "email": email, "password": "Secret123", "role": role,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d %v", email, w.Code, body)
	}
	return body["accessToken"].(string)
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, body map[string]interface{}, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d %v", status, w.Code, body)
	}
	if status >= 400 && body["success"] != false {
		t.Fatalf("expected success=false on error, got %v", body)
	}
}

func TestAuthFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/user/register", "", gin.H{"name": "Alice", "email": "alice@example.com", "password": "Secret123"})
	expectStatus(t, w, body, http.StatusCreated)
	if body["refreshToken"] == "" || body["user"].(map[string]interface{})["role"] != "user" {
		t.Fatalf("unexpected register body %v", body)
	}
	if strings.Contains(w.Body.String(), "passwordHash") {
		t.Fatal("password hash leaked")
	}

	w, body = s.do(t, http.MethodPost, "/user/register", "", gin.H{"name": "Alice", "email": "alice@example.com", "password": "Secret123"})
	expectStatus(t, w, body, http.StatusConflict)

	w, body = s.do(t, http.MethodPost, "/user/register", "", gin.H{"name": "Bob", "email": "not-an-email", "password": "Secret123"})
	expectStatus(t, w, body, http.StatusBadRequest)

	w, body = s.do(t, http.MethodPost, "/user/login", "", gin.H{"email": "alice@example.com", "password": "wrong-pass"})
	expectStatus(t, w, body, http.StatusUnauthorized)
	if body["message"] != "Invalid credentials" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	w, body = s.do(t, http.MethodPost, "/user/login", "", gin.H{"email": "alice@example.com", "password": "Secret123"})
	expectStatus(t, w, body, http.StatusOK)
	access := body["accessToken"].(string)
	refresh := body["refreshToken"].(string)

	w, body = s.do(t, http.MethodGet, "/user/profile", access, nil)
	expectStatus(t, w, body, http.StatusOK)
	if body["user"].(map[string]interface{})["email"] != "alice@example.com" {
		t.Fatalf("unexpected profile %v", body)
	}

	w, body = s.do(t, http.MethodPost, "/user/refresh-token", "", gin.H{"refreshToken": refresh})
	expectStatus(t, w, body, http.StatusOK)
	if _, ok := body["refreshToken"]; ok {
		t.Fatal("refresh must not rotate the refresh token")
	}

	w, body = s.do(t, http.MethodPost, "/user/logout-all", access, nil)
	expectStatus(t, w, body, http.StatusOK)

	w, body = s.do(t, http.MethodPost, "/user/refresh-token", "", gin.H{"refreshToken": refresh})
	expectStatus(t, w, body, http.StatusUnauthorized)

	w, body = s.do(t, http.MethodPost, "/user/logout", access, gin.H{"refreshToken": "unknown"})
	expectStatus(t, w, body, http.StatusOK)
}

func TestLockoutOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Alice", "alice@example.com", "")

	for i := 0; i < 5; i++ {
		w, body := s.do(t, http.MethodPost, "/user/login", "", gin.H{"email": "alice@example.com", "password": "Wrong1234"})
		expectStatus(t, w, body, http.StatusUnauthorized)
	}
	w, body := s.do(t, http.MethodPost, "/user/login", "", gin.H{"email": "alice@example.com", "password": "Secret123"})
	expectStatus(t, w, body, http.StatusLocked)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/cart/get", "", nil)
	expectStatus(t, w, body, http.StatusUnauthorized)
	if body["message"] != "Not authorized, login again" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	w, body = s.do(t, http.MethodGet, "/user/profile", "not-a-jwt", nil)
	expectStatus(t, w, body, http.StatusUnauthorized)
	if body["message"] != "Invalid token" {
		t.Fatalf("unexpected message %v", body["message"])
	}

	customer := s.register(t, "Alice", "alice@example.com", "")
	w, body = s.do(t, http.MethodGet, "/order/list", customer, nil)
	expectStatus(t, w, body, http.StatusForbidden)
	w, body = s.do(t, http.MethodPost, "/food/remove", customer, gin.H{"id": "x"})
	expectStatus(t, w, body, http.StatusForbidden)
}

func TestCartAndCheckoutOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "Root", "root@example.com", "admin")
	customer := s.register(t, "Alice", "alice@example.com", "")

	w, body := s.do(t, http.MethodPost, "/food/add", admin, nil)
	expectStatus(t, w, body, http.StatusBadRequest)

	foodID := s.addFood(t, admin)

	w, body = s.do(t, http.MethodPost, "/cart/add", customer, gin.H{"itemId": foodID})
	expectStatus(t, w, body, http.StatusOK)
	w, body = s.do(t, http.MethodPost, "/cart/add", customer, gin.H{"itemId": foodID})
	expectStatus(t, w, body, http.StatusOK)
	if body["cartData"].(map[string]interface{})[foodID] != float64(2) {
		t.Fatalf("expected quantity 2, got %v", body["cartData"])
	}
	w, body = s.do(t, http.MethodPost, "/cart/remove", customer, gin.H{"itemId": foodID})
	expectStatus(t, w, body, http.StatusOK)
	w, body = s.do(t, http.MethodPost, "/cart/add", customer, gin.H{"itemId": "a.b"})
	expectStatus(t, w, body, http.StatusBadRequest)

	w, body = s.do(t, http.MethodPost, "/order/place", customer, gin.H{
		"items":  []gin.H{{"productId": foodID, "name": "Pilau", "price": 500, "quantity": 1}},
		"amount": 600,
		"address": gin.H{
			"firstName": "Alice", "lastName": "Doe", "email": "alice@example.com", "phone": "0712345678",
			"street": "1 Moi Ave", "city": "Nairobi", "country": "Kenya",
		},
	})
	expectStatus(t, w, body, http.StatusOK)
	order := body["order"].(map[string]interface{})
	if order["amount"] != float64(600) || order["status"] != "Food Processing" {
		t.Fatalf("unexpected order %v", order)
	}
	ref := order["paymentRef"].(string)

	w, body = s.do(t, http.MethodPost, "/cart/get", customer, nil)
	expectStatus(t, w, body, http.StatusOK)
	if len(body["cartData"].(map[string]interface{})) != 0 {
		t.Fatalf("expected empty cart after checkout, got %v", body["cartData"])
	}

	w, body = s.do(t, http.MethodPost, "/order/verify", "", gin.H{"correlationId": ref, "outcome": "success"})
	expectStatus(t, w, body, http.StatusOK)
	if body["payment"] != true {
		t.Fatalf("expected paid order, got %v", body)
	}

	w, body = s.do(t, http.MethodPost, "/order/userorders", customer, nil)
	expectStatus(t, w, body, http.StatusOK)
	if len(body["data"].([]interface{})) != 1 {
		t.Fatalf("expected one order, got %v", body["data"])
	}

	w, body = s.do(t, http.MethodGet, "/order/list?status=Food%20Processing", admin, nil)
	expectStatus(t, w, body, http.StatusOK)
	if body["pagination"].(map[string]interface{})["total"] != float64(1) {
		t.Fatalf("unexpected pagination %v", body["pagination"])
	}

	orderID := order["id"].(string)
	w, body = s.do(t, http.MethodPost, "/order/status", admin, gin.H{"orderId": orderID, "status": "Teleported"})
	expectStatus(t, w, body, http.StatusBadRequest)
	w, body = s.do(t, http.MethodPost, "/order/status", admin, gin.H{"orderId": orderID, "status": "Delivered"})
	expectStatus(t, w, body, http.StatusOK)
	w, body = s.do(t, http.MethodPost, "/order/status", admin, gin.H{"orderId": orderID, "status": "On the Way"})
	expectStatus(t, w, body, http.StatusConflict)
}

func (s *testServer) addFood(t *testing.T, token string) string {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	_ = writer.WriteField("name", "Pilau")
	_ = writer.WriteField("price", "500")
	_ = writer.WriteField("category", "Rice")
	part, _ := writer.CreateFormFile("images", "pilau.jpg")
	_, _ = part.Write([]byte("jpeg"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/food/add", buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w, body := s.serve(t, req)
	expectStatus(t, w, body, http.StatusCreated)

	data := body["data"].(map[string]interface{})
	images := data["images"].([]interface{})
	if len(images) != 1 || images[0] != "uploads/foods/pilau.jpg" {
		t.Fatalf("unexpected images %v", images)
	}
	return data["id"].(string)
}

func TestCatalogOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "Root", "root@example.com", "admin")
	foodID := s.addFood(t, admin)

	w, body := s.do(t, http.MethodPost, "/food/"+foodID+"/offer", admin, gin.H{"isOnOffer": true})
	expectStatus(t, w, body, http.StatusOK)
	if body["data"].(map[string]interface{})["offerPrice"] != float64(400) {
		t.Fatalf("expected derived offer 400.00, got %v", body["data"])
	}

	w, body = s.do(t, http.MethodPut, "/food/"+foodID, admin, gin.H{"price": "520.00", "description": "Spiced"})
	expectStatus(t, w, body, http.StatusOK)

	w, body = s.do(t, http.MethodGet, "/food/list?onOffer=true", "", nil)
	expectStatus(t, w, body, http.StatusOK)
	items := body["data"].([]interface{})
	if len(items) != 1 || items[0].(map[string]interface{})["price"] != float64(520) {
		t.Fatalf("unexpected list %v", items)
	}

	w, body = s.do(t, http.MethodGet, "/food/list?page=0", "", nil)
	expectStatus(t, w, body, http.StatusBadRequest)

	w, body = s.do(t, http.MethodPost, "/food/remove", admin, gin.H{"id": foodID})
	expectStatus(t, w, body, http.StatusOK)
	if len(s.media.deleted) != 1 {
		t.Fatalf("expected image deleted, got %v", s.media.deleted)
	}

	w, body = s.do(t, http.MethodGet, "/food/"+foodID, "", nil)
	expectStatus(t, w, body, http.StatusNotFound)
}

func TestBikersOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "Root", "root@example.com", "admin")
	staff := s.register(t, "Sam", "sam@example.com", "staff")

	w, body := s.do(t, http.MethodPost, "/biker/add", staff, gin.H{"name": "Brian", "phone": "0722000000"})
	expectStatus(t, w, body, http.StatusForbidden)

	w, body = s.do(t, http.MethodPost, "/biker/add", admin, gin.H{"name": "Brian", "phone": "0722000000"})
	expectStatus(t, w, body, http.StatusCreated)
	bikerID := body["data"].(map[string]interface{})["id"].(string)

	w, body = s.do(t, http.MethodGet, "/biker/list?active=true", staff, nil)
	expectStatus(t, w, body, http.StatusOK)
	if len(body["data"].([]interface{})) != 1 {
		t.Fatalf("expected one biker, got %v", body["data"])
	}

	w, body = s.do(t, http.MethodPost, "/biker/remove", admin, gin.H{"id": bikerID})
	expectStatus(t, w, body, http.StatusOK)
	w, body = s.do(t, http.MethodGet, "/biker/list?active=true", staff, nil)
	expectStatus(t, w, body, http.StatusOK)
	if len(body["data"].([]interface{})) != 0 {
		t.Fatalf("expected no active bikers, got %v", body["data"])
	}
}

func TestMpesaCallbackAcknowledges(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/order/mpesa/callback?token="+testCallbackToken, strings.NewReader(`{"Body":{"stkCallback":{
		"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_unknown","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`))
	w, body := s.serve(t, req)
	if w.Code != http.StatusOK || body["ResultCode"] != float64(0) {
		t.Fatalf("expected acknowledgement, got %d %v", w.Code, body)
	}

	req = httptest.NewRequest(http.MethodPost, "/order/mpesa/callback?token="+testCallbackToken, strings.NewReader(`not json`))
	w, _ = s.serve(t, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed callback, got %d", w.Code)
	}
}

func TestMpesaCallbackRejectsForgedRequests(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "Root", "root@example.com", "admin")
	customer := s.register(t, "Alice", "alice@example.com", "")
	foodID := s.addFood(t, admin)

	w, body := s.do(t, http.MethodPost, "/order/place", customer, gin.H{
		"items":  []gin.H{{"productId": foodID, "quantity": 1}},
		"amount": 600,
		"address": gin.H{
			"firstName": "Alice", "lastName": "Doe", "email": "alice@example.com", "phone": "0712345678",
			"street": "1 Moi Ave", "city": "Nairobi", "country": "Kenya",
		},
	})
	expectStatus(t, w, body, http.StatusOK)
	ref := body["order"].(map[string]interface{})["paymentRef"].(string)
	forged := `{"Body":{"stkCallback":{"CheckoutRequestID":"` + ref + `","ResultCode":0,"ResultDesc":"ok"}}}`

	for _, path := range []string{"/order/mpesa/callback", "/order/mpesa/callback?token=guess"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(forged))
		w, _ := s.serve(t, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}

	// a valid token still cannot settle an order that is not paid through M-Pesa
	req := httptest.NewRequest(http.MethodPost, "/order/mpesa/callback?token="+testCallbackToken, strings.NewReader(forged))
	if w, _ := s.serve(t, req); w.Code != http.StatusOK {
		t.Fatalf("expected acknowledgement, got %d", w.Code)
	}

	w, body = s.do(t, http.MethodPost, "/order/userorders", customer, nil)
	expectStatus(t, w, body, http.StatusOK)
	order := body["data"].([]interface{})[0].(map[string]interface{})
	if order["payment"] != false {
		t.Fatalf("forged callback marked the order paid: %v", order)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", w.Code, body)
	}
}

func TestUserStatusOverHTTP(t *testing.T) {
	s := newTestServer(t)
	admin := s.register(t, "Root", "root@example.com", "admin")

	w, body := s.do(t, http.MethodPost, "/user/register", "", gin.H{"name": "Alice", "email": "alice@example.com", "password": "Secret123"})
	expectStatus(t, w, body, http.StatusCreated)
	userID := body["user"].(map[string]interface{})["id"].(string)
	customer := body["accessToken"].(string)

	w, body = s.do(t, http.MethodPost, "/user/status", customer, gin.H{"userId": userID, "isActive": false})
	expectStatus(t, w, body, http.StatusForbidden)

	w, body = s.do(t, http.MethodPost, "/user/status", admin, gin.H{"userId": userID})
	expectStatus(t, w, body, http.StatusBadRequest)

	w, body = s.do(t, http.MethodPost, "/user/status", admin, gin.H{"userId": userID, "isActive": false})
	expectStatus(t, w, body, http.StatusOK)

	w, body = s.do(t, http.MethodPost, "/user/login", "", gin.H{"email": "alice@example.com", "password": "Secret123"})
	expectStatus(t, w, body, http.StatusForbidden)
}
