package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SoloMen88/tenderServise/db"
	"github.com/SoloMen88/tenderServise/internal/apperr"
)

var allowedServiceTypes = map[string]bool{
	"Construction": true,
	"Delivery":     true,
	"Manufacture":  true,
}

var allowedTenderStatuses = map[string]bool{
	db.TenderStatusCreated:   true,
	db.TenderStatusPublished: true,
	db.TenderStatusClosed:    true,
}

// GetTendersHandler возвращает список тендеров, видимых пользователю:
// свои в любом статусе плюс все опубликованные, с фильтром по serviceType.
func (h *Handler) GetTendersHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	// username не обязателен: аноним видит только опубликованные
	creatorID := ""
	if username := r.URL.Query().Get("username"); username != "" {
		employee, err := h.resolveUser(r, username)
		if err != nil {
			h.respondError(w, err)
			return
		}
		creatorID = employee.ID
	}

	var serviceTypes []string
	for _, v := range r.URL.Query()["service_type"] {
		if allowedServiceTypes[v] {
			serviceTypes = append(serviceTypes, v)
		}
	}

	tenders, err := h.Store.GetTenders(r.Context(), creatorID, serviceTypes, params.Limit, params.Offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, tenders)
}

type createTenderRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Description     string `json:"description" validate:"required,max=500"`
	ServiceType     string `json:"serviceType" validate:"required,oneof=Construction Delivery Manufacture"`
	Status          string `json:"status" validate:"omitempty,oneof=Created Published Closed"`
	OrganizationID  string `json:"organizationId" validate:"required,uuid"`
	CreatorUsername string `json:"creatorUsername" validate:"required,max=50"`
}

// CreateTenderHandler обрабатывает POST /api/tenders/new.
// Создатель должен существовать и быть ответственным за организацию.
func (h *Handler) CreateTenderHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}
	defer r.Body.Close()

	var req createTenderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	creator, err := h.resolveUser(r, req.CreatorUsername)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.Validate.Struct(req); err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	isResponsible, err := h.Store.IsUserResponsibleForOrganization(r.Context(), creator.ID, req.OrganizationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !isResponsible {
		h.respondError(w, apperr.Unauthorized(msgUserInvalid))
		return
	}

	if req.Status == "" {
		req.Status = db.TenderStatusCreated
	}
	tender := &db.Tender{
		Name:           req.Name,
		Description:    req.Description,
		ServiceType:    req.ServiceType,
		Status:         req.Status,
		OrganizationID: req.OrganizationID,
		CreatorID:      creator.ID,
	}
	if err := h.Store.CreateTender(r.Context(), tender); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, tender)
}

// GetUserTendersHandler возвращает тендеры, созданные пользователем.
// Если пользователь ничего не создавал, отвечает 401, а не пустым списком.
func (h *Handler) GetUserTendersHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	tenders, err := h.Store.GetUserTenders(r.Context(), employee.ID, params.Limit, params.Offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if len(tenders) == 0 {
		h.respondError(w, apperr.Unauthorized(msgNoTenders))
		return
	}
	h.respondJSON(w, http.StatusOK, tenders)
}

// getTenderForRequest достает тендер по параметру пути tenderId.
func (h *Handler) getTenderForRequest(r *http.Request) (*db.Tender, error) {
	tenderID := chi.URLParam(r, "tenderId")
	if tenderID == "" {
		return nil, apperr.NotFound(msgTenderNotFound)
	}
	tender, err := h.Store.GetTender(r.Context(), tenderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(msgTenderNotFound)
		}
		return nil, err
	}
	return tender, nil
}

// GetTenderStatusHandler возвращает статус тендера. Непубличный статус
// виден только создателю.
func (h *Handler) GetTenderStatusHandler(w http.ResponseWriter, r *http.Request) {
	tender, err := h.getTenderForRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if tender.Status != db.TenderStatusPublished && tender.CreatorID != employee.ID {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": tender.Status})
}

// UpdateTenderStatusHandler меняет статус тендера. Разрешено только
// создателю и только на значения из перечисления.
func (h *Handler) UpdateTenderStatusHandler(w http.ResponseWriter, r *http.Request) {
	tender, err := h.getTenderForRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if tender.CreatorID != employee.ID {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}
	newStatus := r.URL.Query().Get("status")
	if !allowedTenderStatuses[newStatus] {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	tender.Status = newStatus
	if err := h.Store.SetTenderStatus(r.Context(), tender); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, tender)
}

type editTenderRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,min=1,max=500"`
	ServiceType *string `json:"serviceType" validate:"omitempty,oneof=Construction Delivery Manufacture"`
}

// EditTenderHandler обрабатывает PATCH /api/tenders/{tenderId}/edit.
// Редактировать может только создатель; принятое изменение увеличивает
// версию на 1 и пишет снимок в архив.
func (h *Handler) EditTenderHandler(w http.ResponseWriter, r *http.Request) {
	tender, err := h.getTenderForRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if tender.CreatorID != employee.ID {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}
	defer r.Body.Close()

	var input editTenderRequest
	if err := json.Unmarshal(body, &input); err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}
	if err := h.Validate.Struct(input); err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	if input.Name != nil {
		tender.Name = *input.Name
	}
	if input.Description != nil {
		tender.Description = *input.Description
	}
	if input.ServiceType != nil {
		tender.ServiceType = *input.ServiceType
	}

	if err := h.Store.UpdateTender(r.Context(), tender); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, tender)
}

// RollbackTenderHandler откатывает тендер к сохраненной версии: поля
// берутся из снимка, версия растет на 1, новый снимок пишется в архив.
func (h *Handler) RollbackTenderHandler(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	tender, err := h.getTenderForRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if tender.CreatorID != employee.ID {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}

	snapshot, err := h.Store.GetTenderVersion(r.Context(), tender.ID, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(w, apperr.NotFound(msgVersionNotFound))
			return
		}
		h.respondError(w, err)
		return
	}

	// Откат — это обычное версионируемое изменение, а не перемотка:
	// UpdateTender увеличит версию и запишет новый снимок.
	tender.Name = snapshot.Name
	tender.Description = snapshot.Description
	tender.ServiceType = snapshot.ServiceType
	tender.Status = snapshot.Status
	tender.OrganizationID = snapshot.OrganizationID
	tender.CreatorID = snapshot.CreatorID

	if err := h.Store.UpdateTender(r.Context(), tender); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, tender)
}
