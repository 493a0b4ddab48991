package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/policy"
	"wastewatch-backend/internal/services"
	"wastewatch-backend/pkg/utils"
)

// GetUser returns a user profile. Non-admins may only read their own.
func GetUser(identity *services.IdentityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := authorize(w, r, policy.ActionReadUser, policy.Resource{OwnerID: id}); !ok {
			return
		}

		user, err := identity.GetUser(r.Context(), id)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}
		utils.Success(w, user.ToUserResponse())
	}
}

// CreateUser registers a user explicitly (admin only)
func CreateUser(identity *services.IdentityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authorize(w, r, policy.ActionManageUsers, policy.Resource{})
		if !ok {
			return
		}

		var req models.CreateUserRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user, err := identity.CreateUser(r.Context(), req)
		if err != nil {
			utils.RespondAppError(w, err)
			return
		}

		log.Printf("👤 User %s (%s) created by %s", user.Email, user.Role, claims.Email)
		utils.JSON(w, http.StatusCreated, user.ToUserResponse())
	}
}

// RegisterDeviceToken stores the caller's FCM token for push notifications
func RegisterDeviceToken(identity *services.IdentityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := caller(w, r)
		if !ok {
			return
		}

		var req models.RegisterDeviceTokenRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := identity.RegisterDeviceToken(r.Context(), claims.UserID, req); err != nil {
			utils.RespondAppError(w, err)
			return
		}

		log.Printf("📱 Registered %s device token for user %s", req.DeviceType, claims.UserID)
		w.WriteHeader(http.StatusNoContent)
	}
}
