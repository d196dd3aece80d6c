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

var allowedBidStatuses = map[string]bool{
	db.BidStatusCreated:   true,
	db.BidStatusPublished: true,
	db.BidStatusCanceled:  true,
	db.BidStatusApproved:  true,
	db.BidStatusRejected:  true,
}

// Именованные предикаты видимости предложений в списке по тендеру.
// bidVisibleToTenderCreator: владельцу тендера видны только опубликованные.
func bidVisibleToTenderCreator(tender *db.Tender, bid *db.Bid, userID string) bool {
	return tender.CreatorID == userID && bid.Status == db.BidStatusPublished
}

// bidOwnedBy: автор видит свое предложение в любом статусе.
func bidOwnedBy(bid *db.Bid, userID string) bool {
	return bid.CreatorID == userID
}

type createBidRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=500"`
	TenderID    string `json:"tenderId" validate:"required,uuid"`
	// authorType не валидируется перечислением: любое значение, кроме
	// Organization, трактуется как User.
	AuthorType string `json:"authorType"`
	AuthorID   string `json:"authorId" validate:"required,uuid"`
}

// CreateBidHandler обрабатывает POST /api/bids/new.
// Предложение можно подать только на опубликованный тендер; закрытый или
// неопубликованный тендер наружу неотличим от несуществующего (404).
func (h *Handler) CreateBidHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}
	defer r.Body.Close()

	var req createBidRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	author, err := h.Store.GetEmployeeByID(r.Context(), req.AuthorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(w, apperr.Unauthorized(msgUserInvalid))
			return
		}
		h.respondError(w, err)
		return
	}

	tender, err := h.Store.GetTender(r.Context(), req.TenderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(w, apperr.NotFound(msgTenderNotFound))
			return
		}
		h.respondError(w, err)
		return
	}
	if tender.Status != db.TenderStatusPublished {
		h.respondError(w, apperr.NotFound(msgTenderNotFound))
		return
	}

	bid := &db.Bid{
		Name:        req.Name,
		Description: req.Description,
		Status:      db.BidStatusCreated,
		TenderID:    tender.ID,
		CreatorID:   author.ID,
		AuthorType:  db.AuthorTypeUser,
	}
	if req.AuthorType == db.AuthorTypeOrganization {
		// Организация выводится из первой найденной записи
		// ответственности автора.
		organizationID, err := h.Store.GetResponsibleOrganization(r.Context(), author.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				h.respondError(w, apperr.Unauthorized(msgUserInvalid))
				return
			}
			h.respondError(w, err)
			return
		}
		bid.AuthorType = db.AuthorTypeOrganization
		bid.OrganizationID = sql.NullString{String: organizationID, Valid: true}
	}

	if err := h.Validate.Struct(req); err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	if err := h.Store.CreateBid(r.Context(), bid); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bid)
}

// GetBidsHandler возвращает предложения, видимые пользователю: свои в
// любом статусе плюс все опубликованные.
func (h *Handler) GetBidsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	creatorID := ""
	if username := r.URL.Query().Get("username"); username != "" {
		employee, err := h.resolveUser(r, username)
		if err != nil {
			h.respondError(w, err)
			return
		}
		creatorID = employee.ID
	}

	bids, err := h.Store.GetBids(r.Context(), creatorID, params.Limit, params.Offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bids)
}

// GetUserBidsHandler возвращает предложения, созданные пользователем.
func (h *Handler) GetUserBidsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	bids, err := h.Store.GetUserBids(r.Context(), employee.ID, params.Limit, params.Offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bids)
}

// GetBidsForTenderHandler возвращает предложения по тендеру.
// 404 означает, что предложений нет совсем; 403 — предложения есть,
// но ни одно не видно запросившему.
func (h *Handler) GetBidsForTenderHandler(w http.ResponseWriter, r *http.Request) {
	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	tenderID := chi.URLParam(r, "tenderId")
	bids, err := h.Store.GetBidsForTender(r.Context(), tenderID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if len(bids) == 0 {
		h.respondError(w, apperr.NotFound(msgNoBids))
		return
	}

	tender, err := h.Store.GetTender(r.Context(), tenderID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	visible := []db.Bid{}
	for i := range bids {
		if bidVisibleToTenderCreator(tender, &bids[i], employee.ID) || bidOwnedBy(&bids[i], employee.ID) {
			visible = append(visible, bids[i])
		}
	}
	if len(visible) == 0 {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}
	h.respondJSON(w, http.StatusOK, visible)
}

// getBidForRequest достает предложение по параметру пути bidId.
func (h *Handler) getBidForRequest(r *http.Request) (*db.Bid, error) {
	bidID := chi.URLParam(r, "bidId")
	if bidID == "" {
		return nil, apperr.NotFound(msgBidNotFound)
	}
	bid, err := h.Store.GetBid(r.Context(), bidID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(msgBidNotFound)
		}
		return nil, err
	}
	return bid, nil
}

// GetBidStatusHandler возвращает статус предложения. Владельцу тендера
// статусы Created и Canceled не видны, автору видно все.
func (h *Handler) GetBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	bid, err := h.getBidForRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	tender, err := h.Store.GetTender(r.Context(), bid.TenderID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	visibleToTenderCreator := tender.CreatorID == employee.ID &&
		bid.Status != db.BidStatusCreated && bid.Status != db.BidStatusCanceled
	if !visibleToTenderCreator && bid.CreatorID != employee.ID {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}
	h.respondJSON(w, http.StatusOK, bid.Status)
}

// UpdateBidStatusHandler меняет статус предложения. Разрешено только
// автору; в Approved и Rejected напрямую перевести нельзя — эти статусы
// выставляет только движок решений.
func (h *Handler) UpdateBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	bid, err := h.getBidForRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	newStatus := r.URL.Query().Get("status")
	if !allowedBidStatuses[newStatus] {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}
	if bid.CreatorID != employee.ID {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}
	if newStatus == db.BidStatusApproved || newStatus == db.BidStatusRejected {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}

	bid.Status = newStatus
	if err := h.Store.SetBidStatus(r.Context(), bid); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bid)
}

type editBidRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,min=1,max=500"`
}

// EditBidHandler обрабатывает PATCH /api/bids/{bidId}/edit.
func (h *Handler) EditBidHandler(w http.ResponseWriter, r *http.Request) {
	bid, err := h.getBidForRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if bid.CreatorID != employee.ID {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}
	defer r.Body.Close()

	var input editBidRequest
	if err := json.Unmarshal(body, &input); err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}
	if err := h.Validate.Struct(input); err != nil {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	if input.Name != nil {
		bid.Name = *input.Name
	}
	if input.Description != nil {
		bid.Description = *input.Description
	}

	if err := h.Store.UpdateBid(r.Context(), bid); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bid)
}

// RollbackBidHandler откатывает предложение к сохраненной версии,
// по тому же контракту, что и откат тендера.
func (h *Handler) RollbackBidHandler(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	bid, err := h.getBidForRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	if bid.CreatorID != employee.ID {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}

	snapshot, err := h.Store.GetBidVersion(r.Context(), bid.ID, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(w, apperr.NotFound(msgVersionNotFound))
			return
		}
		h.respondError(w, err)
		return
	}

	bid.Name = snapshot.Name
	bid.Description = snapshot.Description
	bid.Status = snapshot.Status
	bid.TenderID = snapshot.TenderID
	bid.OrganizationID = snapshot.OrganizationID
	bid.CreatorID = snapshot.CreatorID
	bid.AuthorType = snapshot.AuthorType

	if err := h.Store.UpdateBid(r.Context(), bid); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bid)
}

// SubmitBidDecisionHandler обрабатывает PUT /api/bids/{bidId}/submit-decision.
// Голос проводится движком решений в одной транзакции.
func (h *Handler) SubmitBidDecisionHandler(w http.ResponseWriter, r *http.Request) {
	decision := r.URL.Query().Get("decision")
	if decision != db.DecisionApproved && decision != db.DecisionRejected {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	bid, err := h.Store.SubmitBidDecision(r.Context(), chi.URLParam(r, "bidId"), employee.ID, decision)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bid)
}

// CreateBidFeedbackHandler обрабатывает PUT /api/bids/{bidId}/feedback.
// Отзыв может оставить только ответственный организации тендера.
// В ответ отдается само предложение.
func (h *Handler) CreateBidFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	feedback := r.URL.Query().Get("bidFeedback")
	if feedback == "" {
		h.respondError(w, apperr.InvalidArgument(msgBadRequest))
		return
	}

	employee, err := h.resolveUser(r, r.URL.Query().Get("username"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	bid, err := h.getBidForRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	tender, err := h.Store.GetTender(r.Context(), bid.TenderID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	isResponsible, err := h.Store.IsUserResponsibleForOrganization(r.Context(), employee.ID, tender.OrganizationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !isResponsible {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}

	review := &db.BidReview{
		BidID:        bid.ID,
		AuthorID:     employee.ID,
		BidCreatorID: bid.CreatorID,
		Description:  feedback,
	}
	if err := h.Store.CreateBidReview(r.Context(), review); err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, bid)
}

// GetBidReviewsHandler обрабатывает GET /api/bids/{tenderId}/reviews.
// authorUsername сверяется с автором первого предложения тендера, а в
// ответ попадают отзывы по всем предложениям тендера.
func (h *Handler) GetBidReviewsHandler(w http.ResponseWriter, r *http.Request) {
	tender, err := h.getTenderForRequest(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	requester, err := h.resolveUser(r, r.URL.Query().Get("requesterUsername"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	// Неизвестный автор — это 403, а не 401.
	author, err := h.Store.GetEmployeeByUsername(r.Context(), r.URL.Query().Get("authorUsername"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(w, apperr.Forbidden(msgUserInvalid))
			return
		}
		h.respondError(w, err)
		return
	}

	isResponsible, err := h.Store.IsUserResponsibleForOrganization(r.Context(), requester.ID, tender.OrganizationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !isResponsible {
		h.respondError(w, apperr.Forbidden(msgForbidden))
		return
	}

	firstBid, err := h.Store.GetFirstBidForTender(r.Context(), tender.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(w, apperr.NotFound(msgNoBidsForTender))
			return
		}
		h.respondError(w, err)
		return
	}
	if author.ID != firstBid.CreatorID {
		h.respondError(w, apperr.Unauthorized(msgUserInvalid))
		return
	}

	reviews, err := h.Store.GetTenderBidReviews(r.Context(), tender.ID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, reviews)
}
