package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"carelistings/internal/auth"
	"carelistings/internal/database"
)

const refreshTokenCookieName = "refresh_token"
const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"
const loginRateLimitPerHour = 20

// AuthHandler 处理管理端登录、Token 刷新与退出。
type AuthHandler struct {
	db          *gorm.DB
	authService *auth.AuthService
	redis       redis.UniversalClient
	logger      *slog.Logger
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		db:          db,
		authService: authService,
		redis:       redisClient,
		logger:      logger,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login 校验口令并返回 Token，按来源 IP 做小时级限流。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	if h.redis != nil {
		key := "auth:login:rate:" + c.ClientIP()
		count, err := incrWithTTL(ctx, h.redis, key, time.Hour)
		if err != nil {
			h.logger.Warn("login rate counter unavailable", slog.Any("error", err))
		} else if count > loginRateLimitPerHour {
			Error(c, http.StatusTooManyRequests, "too many login attempts")
			return
		}
	}

	var user database.AdminUser
	if err := h.db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			Unauthorized(c)
			return
		}
		h.logger.Error("login lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		Unauthorized(c)
		return
	}

	pair, err := h.authService.GenerateTokenPair(user.ID)
	if err != nil {
		h.logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.authService.AccessTokenTTL().Seconds()),
	})
}

// Refresh 用 Cookie 中的刷新令牌换取新的 Token 对。
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(refreshTokenCookieName)
	if err != nil || raw == "" {
		Unauthorized(c)
		return
	}

	claims, err := h.authService.ValidateToken(raw)
	if err != nil || claims.TokenType != "refresh" {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	if h.redis != nil && claims.ID != "" {
		blacklisted, err := h.redis.Exists(ctx, refreshTokenBlacklistKeyPrefix+claims.ID).Result()
		if err != nil {
			h.logger.Warn("refresh blacklist check failed", slog.Any("error", err))
		} else if blacklisted > 0 {
			Unauthorized(c)
			return
		}
	}

	pair, err := h.authService.GenerateTokenPair(claims.UserID)
	if err != nil {
		h.logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.blacklistRefreshToken(c, claims)
	h.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.authService.AccessTokenTTL().Seconds()),
	})
}

// Logout 作废当前刷新令牌并清除 Cookie。
func (h *AuthHandler) Logout(c *gin.Context) {
	if raw, err := c.Cookie(refreshTokenCookieName); err == nil && raw != "" {
		if claims, err := h.authService.ValidateToken(raw); err == nil && claims.TokenType == "refresh" {
			h.blacklistRefreshToken(c, claims)
		}
	}

	c.SetCookie(refreshTokenCookieName, "", -1, "/", "", true, true)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	maxAge := int(h.authService.RefreshTokenTTL().Seconds())
	c.SetCookie(refreshTokenCookieName, token, maxAge, "/", "", true, true)
}

func (h *AuthHandler) blacklistRefreshToken(c *gin.Context, claims *auth.TokenClaims) {
	if h.redis == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return
	}
	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.redis.Set(c.Request.Context(), key, "1", ttl).Err(); err != nil {
		h.logger.Warn("blacklist refresh token failed", slog.Any("error", err))
	}
}
