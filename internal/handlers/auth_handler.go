// doc-flow/internal/handlers/auth_handler.go
package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/colaisr/doc-flow/config"
	"github.com/colaisr/doc-flow/models"
)

type loginInput struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerInput struct {
	OrganizationName string `json:"organization_name" binding:"required"`
	Login            string `json:"login" binding:"required"`
	Password         string `json:"password" binding:"required,min=8"`
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
}

const tokenTTL = 24 * time.Hour

func issueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"org_id":  user.OrganizationID,
		"login":   user.Login,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(config.JwtKey)
}

// LoginHandler verifies credentials and sets the auth cookie. The token is
// also returned in the body for API clients.
func LoginHandler(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login and password are required"})
		return
	}

	var user models.User
	if err := config.DB.Where("login = ?", input.Login).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid login or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid login or password"})
		return
	}

	tokenStr, err := issueToken(&user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetCookie("auth_token", tokenStr, int(tokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"token": tokenStr, "user_id": user.ID, "org_id": user.OrganizationID})
}

// RegisterHandler creates an organization together with its first user.
func RegisterHandler(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err)
		return
	}

	var user models.User
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		org := models.Organization{Name: input.OrganizationName}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		user = models.User{
			OrganizationID: org.ID,
			Login:          input.Login,
			PasswordHash:   string(hash),
			FullName:       input.FullName,
			Email:          input.Email,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "login is already taken"})
		return
	}

	slog.Info("Registered organization", "org_id", user.OrganizationID, "login", user.Login)
	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "org_id": user.OrganizationID})
}

// LogoutHandler clears the cookie and drops the cached session data.
func LogoutHandler(c *gin.Context) {
	if userID := currentUserID(c); userID != 0 && config.RDB != nil {
		if err := config.RDB.Del(config.Ctx, fmt.Sprintf("user:%d:data", userID)).Err(); err != nil {
			slog.Warn("Failed to drop cached user data", "error", err, "user_id", userID)
		}
	}
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}
