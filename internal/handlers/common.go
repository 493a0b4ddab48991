package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/internal/middleware"
	"wastewatch-backend/internal/policy"
	"wastewatch-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst, answering 400 on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondError(w, http.StatusBadRequest, apperrors.KindValidation, "Invalid request body")
		return false
	}
	return true
}

// caller returns the authenticated user. Routes behind middleware.Auth always have one.
func caller(w http.ResponseWriter, r *http.Request) (middleware.UserClaims, bool) {
	claims, ok := middleware.GetUserFromContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, apperrors.KindUnauthorized, "Unauthorized")
		return middleware.UserClaims{}, false
	}
	return claims, true
}

func subject(c middleware.UserClaims) policy.Subject {
	return policy.Subject{UserID: c.UserID, Role: c.Role}
}

// authorize writes 403 and returns false unless the caller may perform action on res.
func authorize(w http.ResponseWriter, r *http.Request, action policy.Action, res policy.Resource) (middleware.UserClaims, bool) {
	claims, ok := caller(w, r)
	if !ok {
		return claims, false
	}
	if !policy.Permit(subject(claims), action, res) {
		deny(w, action)
		return claims, false
	}
	return claims, true
}

func deny(w http.ResponseWriter, action policy.Action) {
	utils.RespondError(w, http.StatusForbidden, apperrors.KindUnauthorized, "not permitted to "+action.String())
}
