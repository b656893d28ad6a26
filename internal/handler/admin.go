package handler

import (
	"net/http"

	"github.com/adpanel/adpanel/internal/ctxkeys"
	"github.com/adpanel/adpanel/internal/service"
)

// AdminHandler serves the operator surface. Every route is mounted behind
// RequireAdmin.
type AdminHandler struct {
	authService    *service.AuthService
	userService    *service.UserService
	packageService *service.PackageService
	paymentService *service.PaymentService
}

func NewAdminHandler(authService *service.AuthService, userService *service.UserService, packageService *service.PackageService, paymentService *service.PaymentService) *AdminHandler {
	return &AdminHandler{
		authService:    authService,
		userService:    userService,
		packageService: packageService,
		paymentService: paymentService,
	}
}

func (h *AdminHandler) PaymentSettings(w http.ResponseWriter, r *http.Request) {
	view, err := h.paymentService.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *AdminHandler) UpdatePaymentSettings(w http.ResponseWriter, r *http.Request) {
	admin := ctxkeys.User(r.Context())

	var in service.SettingsInput
	err := decodeJSON(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.paymentService.UpdateSettings(r.Context(), admin.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *AdminHandler) RecordOfflinePayment(w http.ResponseWriter, r *http.Request) {
	admin := ctxkeys.User(r.Context())

	var in service.OfflinePaymentInput
	err := decodeJSON(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.paymentService.RecordOffline(r.Context(), admin.ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (h *AdminHandler) Packages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.packageService.List(r.Context(), false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"packages": packages})
}

func (h *AdminHandler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	var in service.PackageInput
	err := decodeJSON(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkg, err := h.packageService.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, pkg)
}

func (h *AdminHandler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	var in service.PackageInput
	err := decodeJSON(w, r, &in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkg, err := h.packageService.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pkg)
}

func (h *AdminHandler) DeletePackage(w http.ResponseWriter, r *http.Request) {
	err := h.packageService.Deactivate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type setAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

func (h *AdminHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	admin := ctxkeys.User(r.Context())

	var req setAdminRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = h.userService.SetAdmin(r.Context(), admin.ID, r.PathValue("id"), req.IsAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Payments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.paymentService.ListAllPayments(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *AdminHandler) Impersonate(w http.ResponseWriter, r *http.Request) {
	admin := ctxkeys.User(r.Context())

	token, user, err := h.authService.Impersonate(r.Context(), admin.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
}
