package handlers

import (
	"errors"
	"net/http"

	"github.com/01moynul/storefront-golang/internal/accounts"
	"github.com/gin-gonic/gin"
)

//
// --- Auth Handlers (Public) ---
//

// Register is the handler for POST /register
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input accounts.Registration
	if err := bindJSON(c, &input); err != nil {
		h.writeError(c, err)
		return
	}

	// 2. --- Create User & Profile ---
	user, err := h.Accounts.CreateAccount(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// 3. --- Log In ---
	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"user":    user,
		"token":   token,
	})
}

// Login is the handler for POST /login
func (h *Handlers) Login(c *gin.Context) {
	var input accounts.Credentials
	if err := bindJSON(c, &input); err != nil {
		h.writeError(c, err)
		return
	}

	user, err := h.Accounts.Authenticate(c.Request.Context(), input.Login, input.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email/username or password"})
			return
		}
		h.writeError(c, err)
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
