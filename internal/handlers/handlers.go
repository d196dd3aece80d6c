package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/SoloMen88/tenderServise/db"
	"github.com/SoloMen88/tenderServise/internal/apperr"
)

// Сообщения об ошибках, отдаваемые клиенту.
const (
	msgUserInvalid     = "Пользователь не существует или некорректен."
	msgForbidden       = "Недостаточно прав для выполнения действия."
	msgTenderNotFound  = "Тендер не найден."
	msgBidNotFound     = "Предложение не найдено."
	msgVersionNotFound = "Версия не найдена."
	msgBadRequest      = "Неверный формат запроса или его параметры."
	msgNoTenders       = "Пользователь не создал тендеры."
	msgNoBids          = "Предложений не найдено."
	msgNoBidsForTender = "Пользователь не делал предложений по указанному тендеру."
)

// Handler связывает HTTP-обработчики с хранилищем.
type Handler struct {
	Store    StorageInterface
	Log      *zap.Logger
	Validate *validator.Validate
}

// NewHandler создает новый Handler.
func NewHandler(store StorageInterface, log *zap.Logger) *Handler {
	return &Handler{
		Store:    store,
		Log:      log,
		Validate: validator.New(),
	}
}

// PingHandler отвечает "ok" для проверки сервера.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type reasonResponse struct {
	Reason string `json:"reason"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Error("failed to encode response", zap.Error(err))
	}
}

// respondError переводит типизированную ошибку в HTTP-ответ вида
// {"reason": "..."}; неожиданные ошибки логируются и превращаются в 500.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	if appErr.Kind() == apperr.KindInternal {
		h.Log.Error("internal error", zap.Error(err))
	}
	h.respondJSON(w, appErr.StatusCode(), reasonResponse{Reason: appErr.Message()})
}

// resolveUser находит сотрудника по username; отсутствие пользователя —
// это всегда 401, а не 404.
func (h *Handler) resolveUser(r *http.Request, username string) (*db.Employee, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Unauthorized(msgUserInvalid)
	}
	employee, err := h.Store.GetEmployeeByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Unauthorized(msgUserInvalid)
		}
		return nil, err
	}
	return employee, nil
}

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams парсит limit и offset из query, с дефолтами и ограничениями.
func parsePaginationParams(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: 5, Offset: 0}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 50 {
			params.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}
