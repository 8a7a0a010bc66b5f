package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/dmitrijs2005/secureshare/internal/logging"
	"github.com/dmitrijs2005/secureshare/internal/server/models"
	"github.com/dmitrijs2005/secureshare/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// maxUploadSize caps multipart uploads at 32 MiB.
const maxUploadSize = 32 << 20

// The handler depends on narrow interfaces rather than the concrete
// services so tests can substitute fakes.

type Accounts interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type Vault interface {
	Upload(ctx context.Context, req *services.UploadRequest) (string, error)
	Download(ctx context.Context, fileID, requesterID string) (*services.DownloadResult, error)
	Share(ctx context.Context, fileID, senderID, recipientUsername string, sensitive bool, otpCode string) (string, error)
	Delete(ctx context.Context, fileID, deletionType string, recipientUsernames []string, requesterID string) error
	ListFiles(ctx context.Context, requesterID, keyword string) ([]*models.File, error)
}

type OtpGate interface {
	GenerateAndSend(ctx context.Context, userID string) error
}

type Exporter interface {
	Export(ctx context.Context, fileID, requesterID string) (string, error)
}

type ShareLedger interface {
	ListSharedByMe(ctx context.Context, requesterID string, sensitive *bool) ([]*services.ShareInfo, error)
	ListSharedToMe(ctx context.Context, requesterID string, sensitive *bool) ([]*services.ShareInfo, error)
	ListRecipients(ctx context.Context, fileID, requesterID string) ([]string, error)
}

type AuditTrail interface {
	List(ctx context.Context, requesterID string) ([]*models.AuditLog, error)
}

// Handler holds the service dependencies of the HTTP surface.
type Handler struct {
	accounts Accounts
	vault    Vault
	otp      OtpGate
	exporter Exporter
	ledger   ShareLedger
	audit    AuditTrail
	logger   logging.Logger
}

func NewHandler(accounts Accounts, vault Vault, otp OtpGate, exporter Exporter, ledger ShareLedger, audit AuditTrail, logger logging.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		vault:    vault,
		otp:      otp,
		exporter: exporter,
		ledger:   ledger,
		audit:    audit,
		logger:   logger,
	}
}

// ---- accounts ----

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid json: %w", common.ErrValidation))
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": user.ID, "username": user.Username})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid json: %w", common.ErrValidation))
		return
	}

	pair, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid json: %w", common.ErrValidation))
		return
	}

	pair, err := h.accounts.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// ---- files ----

// upload accepts one or more "file" parts and stores each as its own row.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, fmt.Errorf("invalid multipart body: %w", common.ErrValidation))
		return
	}

	parts := r.MultipartForm.File["file"]
	if len(parts) == 0 {
		writeError(w, fmt.Errorf("missing file part: %w", common.ErrValidation))
		return
	}

	ids := make([]string, 0, len(parts))
	for _, header := range parts {
		file, err := header.Open()
		if err != nil {
			writeError(w, common.ErrInternal)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, common.ErrInternal)
			return
		}

		id, err := h.vault.Upload(r.Context(), &services.UploadRequest{
			OwnerID:     userIDFromContext(r.Context()),
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Description: r.FormValue("description"),
			Category:    r.FormValue("category"),
			Data:        data,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		ids = append(ids, id)
	}

	writeJSON(w, http.StatusCreated, map[string][]string{"ids": ids})
}

type fileResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ContentType string `json:"content_type"`
	IsOriginal  bool   `json:"is_original"`
	CreatedAt   string `json:"created_at"`
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.vault.ListFiles(r.Context(), userIDFromContext(r.Context()), r.URL.Query().Get("keyword"))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]fileResponse, 0, len(list))
	for _, f := range list {
		resp = append(resp, fileResponse{
			ID:          f.ID,
			Filename:    f.Filename,
			Description: f.Description,
			Category:    f.Category,
			ContentType: f.ContentType,
			IsOriginal:  f.IsRoot(),
			CreatedAt:   f.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	result, err := h.vault.Download(r.Context(), chi.URLParam(r, "id"), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	url, err := h.exporter.Export(r.Context(), chi.URLParam(r, "id"), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type shareRequest struct {
	Recipient string `json:"recipient"`
	Sensitive bool   `json:"sensitive"`
	OtpCode   string `json:"otp_code"`
}

func (h *Handler) share(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid json: %w", common.ErrValidation))
		return
	}

	id, err := h.vault.Share(r.Context(), chi.URLParam(r, "id"), userIDFromContext(r.Context()),
		req.Recipient, req.Sensitive, req.OtpCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type deleteRequest struct {
	Type       string   `json:"type"`
	Recipients []string `json:"recipients"`
}

func (h *Handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	req := deleteRequest{Type: services.DeleteMe}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("invalid json: %w", common.ErrValidation))
			return
		}
	}

	err := h.vault.Delete(r.Context(), chi.URLParam(r, "id"), req.Type, req.Recipients, userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- sharing ----

func (h *Handler) recipients(w http.ResponseWriter, r *http.Request) {
	names, err := h.ledger.ListRecipients(r.Context(), chi.URLParam(r, "id"), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"recipients": names})
}

// sensitiveFilter parses the optional ?sensitive=true|false query parameter.
func sensitiveFilter(r *http.Request) (*bool, error) {
	switch r.URL.Query().Get("sensitive") {
	case "":
		return nil, nil
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("sensitive must be true or false: %w", common.ErrValidation)
	}
}

func (h *Handler) sharedByMe(w http.ResponseWriter, r *http.Request) {
	sensitive, err := sensitiveFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.ledger.ListSharedByMe(r.Context(), userIDFromContext(r.Context()), sensitive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) sharedToMe(w http.ResponseWriter, r *http.Request) {
	sensitive, err := sensitiveFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := h.ledger.ListSharedToMe(r.Context(), userIDFromContext(r.Context()), sensitive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- otp ----

func (h *Handler) sendOtp(w http.ResponseWriter, r *http.Request) {
	if err := h.otp.GenerateAndSend(r.Context(), userIDFromContext(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ---- audit ----

type auditResponse struct {
	Action    string `json:"action"`
	Filename  string `json:"filename"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]auditResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, auditResponse{
			Action:    e.Action,
			Filename:  e.Filename,
			CreatedAt: e.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
