package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mainsite/internal/auth"
	"mainsite/internal/database"
)

const (
	refreshBlacklistKeyPrefix = "auth:refresh:blacklist:"
	loginRateLimitPerHour     = 10
)

// AuthHandler handles operator login, refresh and logout.
type AuthHandler struct {
	db          *gorm.DB
	authService *auth.AuthService
	redis       redis.UniversalClient
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient) *AuthHandler {
	return &AuthHandler{db: db, authService: authService, redis: redisClient}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Login checks the operator credentials and returns a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid login payload")
		return
	}

	ctx := c.Request.Context()
	logger := LoggerFrom(c).With(slog.String("username", req.Username))

	if h.redis != nil {
		rateKey := "rate:login:" + c.ClientIP() + ":" + strings.ToLower(req.Username) + ":" + time.Now().UTC().Format("2006010215")
		if count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour); err == nil && count > loginRateLimitPerHour {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
	}

	var operator database.Operator
	if err := h.db.WithContext(ctx).Where("username = ?", req.Username).First(&operator).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: operator not found")
			Unauthorized(c)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, operator.PasswordHash) {
		logger.Info("login failed: password mismatch")
		Unauthorized(c)
		return
	}

	pair, err := h.authService.GenerateTokenPair(operator.ID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.authService.AccessTokenTTL().Seconds()),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a valid, unrevoked refresh token for a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := LoggerFrom(c)

	claims, err := h.authService.ValidateToken(req.RefreshToken)
	if err != nil || claims.TokenType != "refresh" || claims.ID == "" {
		Unauthorized(c)
		return
	}

	if h.redis != nil {
		err := h.redis.Get(ctx, refreshBlacklistKeyPrefix+claims.ID).Err()
		if err == nil {
			logger.Info("refresh token revoked", slog.String("jti", claims.ID))
			Unauthorized(c)
			return
		}
		if !errors.Is(err, redis.Nil) {
			logger.Error("refresh blacklist lookup failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
	}

	pair, err := h.authService.GenerateTokenPair(claims.OperatorID)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// rotate: the consumed token must not be replayable
	if err := h.revokeRefreshToken(ctx, claims.ID, claims.ExpiresAt); err != nil {
		logger.Error("revoke rotated refresh token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.authService.AccessTokenTTL().Seconds()),
	})
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusNoContent)
		return
	}

	claims, err := h.authService.ValidateToken(req.RefreshToken)
	if err != nil || claims.TokenType != "refresh" || claims.ID == "" {
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.revokeRefreshToken(c.Request.Context(), claims.ID, claims.ExpiresAt); err != nil {
		LoggerFrom(c).Error("blacklist refresh token failed", slog.Any("error", err))
	}

	c.Status(http.StatusNoContent)
}

// revokeRefreshToken blacklists a refresh token by jti for whatever lifetime
// it has left, so the entry expires with the token itself.
func (h *AuthHandler) revokeRefreshToken(ctx context.Context, jti string, expiresAt *jwt.NumericDate) error {
	if h.redis == nil {
		return nil
	}
	var ttl time.Duration
	if expiresAt == nil {
		ttl = h.authService.RefreshTokenTTL()
	} else {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, refreshBlacklistKeyPrefix+jti, "revoked", ttl).Err()
}
