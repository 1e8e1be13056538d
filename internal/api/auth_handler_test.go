package api

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mainsite/internal/auth"
	"mainsite/internal/database"
)

// fakeRedisBlacklist backs the Get/Set pair the token blacklist uses.
type fakeRedisBlacklist struct {
	redis.UniversalClient
	entries map[string]string
}

func newFakeRedisBlacklist() *fakeRedisBlacklist {
	return &fakeRedisBlacklist{entries: map[string]string{}}
}

func (f *fakeRedisBlacklist) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.entries[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedisBlacklist) Get(_ context.Context, key string) *redis.StringCmd {
	if value, ok := f.entries[key]; ok {
		return redis.NewStringResult(value, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func newTestAuthService(t *testing.T) *auth.AuthService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	service, err := auth.NewAuthService(privatePEM, publicPEM, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return service
}

func newAuthRouter(db *gorm.DB, service *auth.AuthService, redisClient redis.UniversalClient) *gin.Engine {
	handler := NewAuthHandler(db, service, redisClient)
	router := gin.New()
	router.POST("/admin/login", handler.Login)
	router.POST("/admin/refresh", handler.Refresh)
	router.POST("/admin/logout", handler.Logout)
	return router
}

func seedOperator(t *testing.T, db *gorm.DB, username, password string) database.Operator {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	operator := database.Operator{Username: username, PasswordHash: hash}
	if err := db.Create(&operator).Error; err != nil {
		t.Fatalf("seed operator: %v", err)
	}
	return operator
}

func TestLogin_ValidCredentialsReturnTokenPair(t *testing.T) {
	db := newTestDB(t)
	service := newTestAuthService(t)
	router := newAuthRouter(db, service, nil)
	seedOperator(t, db, "admin", "correct horse")

	w := postJSON(router, "/admin/login", `{"username":"admin","password":"correct horse"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", resp)
	}

	claims, err := service.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.TokenType != "access" {
		t.Fatalf("expected access token, got %q", claims.TokenType)
	}
}

func TestLogin_BadPasswordUnauthorized(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(db, newTestAuthService(t), nil)
	seedOperator(t, db, "admin", "correct horse")

	w := postJSON(router, "/admin/login", `{"username":"admin","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestLogin_UnknownOperatorUnauthorized(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(db, newTestAuthService(t), nil)

	w := postJSON(router, "/admin/login", `{"username":"ghost","password":"x"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	db := newTestDB(t)
	service := newTestAuthService(t)
	router := newAuthRouter(db, service, nil)
	operator := seedOperator(t, db, "admin", "pw")

	pair, err := service.GenerateTokenPair(operator.ID)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	w := postJSON(router, "/admin/refresh", fmt.Sprintf(`{"refresh_token":%q}`, pair.RefreshToken))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var resp tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("expected fresh access token")
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	db := newTestDB(t)
	service := newTestAuthService(t)
	router := newAuthRouter(db, service, nil)
	operator := seedOperator(t, db, "admin", "pw")

	pair, err := service.GenerateTokenPair(operator.ID)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	w := postJSON(router, "/admin/refresh", fmt.Sprintf(`{"refresh_token":%q}`, pair.AccessToken))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access token, got %d", w.Code)
	}
}

func TestRefresh_ConsumedTokenNotReplayable(t *testing.T) {
	db := newTestDB(t)
	service := newTestAuthService(t)
	blacklist := newFakeRedisBlacklist()
	router := newAuthRouter(db, service, blacklist)
	operator := seedOperator(t, db, "admin", "pw")

	pair, err := service.GenerateTokenPair(operator.ID)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	body := fmt.Sprintf(`{"refresh_token":%q}`, pair.RefreshToken)

	first := postJSON(router, "/admin/refresh", body)
	if first.Code != http.StatusOK {
		t.Fatalf("first refresh: expected 200 got %d body=%s", first.Code, first.Body.String())
	}
	if len(blacklist.entries) != 1 {
		t.Fatalf("expected consumed token blacklisted, got %d entries", len(blacklist.entries))
	}

	replay := postJSON(router, "/admin/refresh", body)
	if replay.Code != http.StatusUnauthorized {
		t.Fatalf("replay: expected 401 got %d", replay.Code)
	}
}

func TestLogoutThenRefreshUnauthorized(t *testing.T) {
	db := newTestDB(t)
	service := newTestAuthService(t)
	router := newAuthRouter(db, service, newFakeRedisBlacklist())
	operator := seedOperator(t, db, "admin", "pw")

	pair, err := service.GenerateTokenPair(operator.ID)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	body := fmt.Sprintf(`{"refresh_token":%q}`, pair.RefreshToken)

	if w := postJSON(router, "/admin/logout", body); w.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204 got %d", w.Code)
	}
	if w := postJSON(router, "/admin/refresh", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401 got %d", w.Code)
	}
}

func TestLogout_AlwaysNoContent(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(db, newTestAuthService(t), nil)

	w := postJSON(router, "/admin/logout", `{"refresh_token":"garbage"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", w.Code)
	}
}
