package handlers

import (
	"log"
	"net/http"
	"time"

	"wastewatch-backend/internal/middleware"
	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/services"
	"wastewatch-backend/pkg/utils"
)

type LoginResponse struct {
	User  models.UserResponse `json:"user"`
	Token string              `json:"token"`
}

// Login resolves (or creates) the user for the email and role and issues a token
func Login(identity *services.IdentityService, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		log.Printf("🔐 Login attempt for: %s as %s", req.Email, req.Role)

		user, err := identity.Resolve(r.Context(), req.Email, req.Role, req.Password)
		if err != nil {
			log.Printf("❌ Login failed for %s: %v", req.Email, err)
			utils.RespondAppError(w, err)
			return
		}

		token, err := middleware.IssueToken(jwtSecret, user, time.Now())
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}

		log.Printf("✅ Login successful for: %s (%s)", user.Email, user.Role)
		utils.Success(w, LoginResponse{User: user.ToUserResponse(), Token: token})
	}
}
