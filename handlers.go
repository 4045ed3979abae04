package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/EricBellDesigns/blackplum-wealth-platform/models"
	"github.com/EricBellDesigns/blackplum-wealth-platform/pkg/resetcode"
)

const roleAdministrator = "administrator"
const roleInvestor = "investor"

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.GET("/account/confirm", confirmAccountHandler)
	r.POST("/login", loginHandler)
	r.POST("/admin/login", adminLoginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	r.POST("/password/reset", passwordResetHandler)
	r.POST("/password/change", passwordChangeHandler)

	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.GET("/offerings", listOfferingsHandler)
	authGroup.GET("/offerings/:id", getOfferingHandler)

	adminGroup := r.Group("")
	adminGroup.Use(jwtAuthMiddleware(), adminOnly())
	adminGroup.POST("/offerings", createOfferingHandler)
	adminGroup.PUT("/offerings/:id", updateOfferingHandler)
	adminGroup.DELETE("/offerings/:id", deleteOfferingHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		sub, _ := claims["sub"].(string)
		email, _ := claims["email"].(string)
		role, _ := claims["role"].(string)
		if sub == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		c.Set("subject_id", sub)
		c.Set("email", email)
		c.Set("role", role)
		c.Next()
	}
}

// adminOnly rejects requests whose token does not carry the administrator
// role. Must run after jwtAuthMiddleware.
func adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != roleAdministrator {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":    c.GetString("subject_id"),
		"email": c.GetString("email"),
		"role":  c.GetString("role"),
	})
}

func registerHandler(c *gin.Context) {
	var req struct {
		Name                     string         `json:"name" binding:"required"`
		Email                    string         `json:"email" binding:"required"`
		Password                 string         `json:"password" binding:"required"`
		ResidencyStatus          string         `json:"residency_status" binding:"required"`
		InvestingExperience      string         `json:"investing_experience" binding:"required"`
		InvestingExperienceYears int            `json:"investing_experience_years"`
		Questionnaire            map[string]any `json:"questionnaire"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var questionnaire datatypes.JSON
	if req.Questionnaire != nil {
		b, err := json.Marshal(req.Questionnaire)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid questionnaire payload"})
			return
		}
		questionnaire = datatypes.JSON(b)
	}
	investor, err := RegisterInvestor(InvestorRegistration{
		Name:                     req.Name,
		Email:                    req.Email,
		Password:                 req.Password,
		ResidencyStatus:          req.ResidencyStatus,
		InvestingExperience:      req.InvestingExperience,
		InvestingExperienceYears: req.InvestingExperienceYears,
		Questionnaire:            questionnaire,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// delivery failures shouldn't fail the registration; code stays valid
	if err := mail.SendConfirmation(investor.Email, investor.ConfirmationCode); err != nil {
		c.JSON(http.StatusOK, gin.H{"id": investor.ID, "warning": "confirmation email could not be sent"})
		return
	}
	c.JSON(http.StatusOK, investor)
}

// confirmAccountHandler flips the confirmed flag for the account matching the
// emailed code, then redirects to the login page either way.
func confirmAccountHandler(c *gin.Context) {
	code := c.Query("code")
	confirmed := false
	if code != "" {
		res := db.Model(&models.Investor{}).
			Where("confirmation_code = ?", code).
			Update("confirmed", true)
		confirmed = res.Error == nil && res.RowsAffected > 0
	}
	if confirmed {
		c.Redirect(http.StatusFound, "/login?confirmed=true")
		return
	}
	c.Redirect(http.StatusFound, "/login?confirmed=false")
}

func loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	investor, err := AuthenticateInvestor(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	issueSession(c, investor.ID, investor.Email, roleInvestor)
}

func adminLoginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	admin, err := AuthenticateAdmin(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	issueSession(c, admin.ID, admin.Email, roleAdministrator)
}

// issueSession responds with a fresh access token and a rotating refresh token.
func issueSession(c *gin.Context, subjectID, email, role string) {
	tokenString, err := signAccessToken(subjectID, email, role, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(subjectID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

func signAccessToken(subjectID, email, role string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   subjectID,
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(subjectID, role string) (string, error) {
	// generate random 32-byte token (hex)
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	// hash for storage
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{SubjectID: subjectID, Role: role, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	// resolve the subject in whichever table the role points at
	var email string
	switch rt.Role {
	case roleAdministrator:
		var admin models.Admin
		if err := db.First(&admin, "id = ?", rt.SubjectID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}
		email = admin.Email
	default:
		var investor models.Investor
		if err := db.First(&investor, "id = ?", rt.SubjectID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}
		email = investor.Email
	}
	tokenString, err := signAccessToken(rt.SubjectID, email, rt.Role, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(rt.SubjectID, rt.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

// passwordResetHandler issues a stateless reset token for the given investor
// email and sends the reset link.
func passwordResetHandler(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var investor models.Investor
	if err := db.Where("email = ?", normalizeEmail(req.Email)).First(&investor).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user with the given email doesn't exist"})
		return
	}
	code := resetcode.Generate(resetSecret, resetStateOf(investor))
	if err := mail.SendPasswordReset(investor.Email, code); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send password reset email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset_code": code})
}

// passwordChangeHandler verifies a reset token against the account's current
// state and updates the password.
func passwordChangeHandler(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required"`
		Password  string `json:"password" binding:"required"`
		ResetCode string `json:"reset_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too short (min 6)"})
		return
	}
	subjectID, err := resetcode.SubjectID(req.ResetCode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var investor models.Investor
	if err := db.Where("id = ? AND email = ?", subjectID, normalizeEmail(req.Email)).First(&investor).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account not found"})
		return
	}
	if err := resetcode.Verify(resetSecret, req.ResetCode, resetStateOf(investor), time.Now()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}
	if err := db.Model(&investor).Update("password", string(hashed)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func resetStateOf(investor models.Investor) resetcode.State {
	return resetcode.State{
		ID:           investor.ID,
		Email:        investor.Email,
		PasswordHash: investor.Password,
		LastLoginAt:  investor.LastLoginAt,
	}
}
