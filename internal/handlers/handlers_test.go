package handlers_test

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SoloMen88/tenderServise/db"
	"github.com/SoloMen88/tenderServise/internal/handlers"
)

// Фиксированные идентификаторы для тестов.
const (
	testOrgID    = "11111111-1111-1111-1111-111111111111"
	testUserID   = "22222222-2222-2222-2222-222222222222"
	testOtherID  = "33333333-3333-3333-3333-333333333333"
	testTenderID = "44444444-4444-4444-4444-444444444444"
	testBidID    = "55555555-5555-5555-5555-555555555555"
)

// MockStorage реализует StorageInterface. Поведение настраивается полями,
// мутирующие вызовы записываются для проверок.
type MockStorage struct {
	employees      map[string]*db.Employee // ключ — username
	employeesByID  map[string]*db.Employee // ключ — id
	responsible    bool
	responsibleOrg string // пусто — у сотрудника нет организаций

	tender        *db.Tender
	tenderVersion *db.Tender
	tenders       []db.Tender
	userTenders   []db.Tender

	bid        *db.Bid
	bidVersion *db.Bid
	bids       []db.Bid
	tenderBids []db.Bid
	firstBid   *db.Bid

	reviews []db.BidReview

	decisionFunc func(ctx context.Context, bidID, voterID, decision string) (*db.Bid, error)

	createdTenders    []*db.Tender
	updatedTenders    []*db.Tender
	tenderStatusSets  []*db.Tender
	createdBids       []*db.Bid
	updatedBids       []*db.Bid
	bidStatusSets     []*db.Bid
	createdReviews    []*db.BidReview
}

func (m *MockStorage) GetEmployeeByUsername(ctx context.Context, username string) (*db.Employee, error) {
	if e, ok := m.employees[username]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *MockStorage) GetEmployeeByID(ctx context.Context, id string) (*db.Employee, error) {
	if e, ok := m.employeesByID[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *MockStorage) IsUserResponsibleForOrganization(ctx context.Context, userID, organizationID string) (bool, error) {
	return m.responsible, nil
}

func (m *MockStorage) GetResponsibleOrganization(ctx context.Context, userID string) (string, error) {
	if m.responsibleOrg == "" {
		return "", sql.ErrNoRows
	}
	return m.responsibleOrg, nil
}

func (m *MockStorage) CreateTender(ctx context.Context, tender *db.Tender) error {
	tender.ID = testTenderID
	tender.Version = 1
	m.createdTenders = append(m.createdTenders, tender)
	return nil
}

func (m *MockStorage) GetTender(ctx context.Context, tenderID string) (*db.Tender, error) {
	if m.tender == nil {
		return nil, sql.ErrNoRows
	}
	return m.tender, nil
}

func (m *MockStorage) UpdateTender(ctx context.Context, tender *db.Tender) error {
	tender.Version++
	m.updatedTenders = append(m.updatedTenders, tender)
	return nil
}

func (m *MockStorage) SetTenderStatus(ctx context.Context, tender *db.Tender) error {
	m.tenderStatusSets = append(m.tenderStatusSets, tender)
	return nil
}

func (m *MockStorage) GetTenders(ctx context.Context, creatorID string, serviceTypes []string, limit, offset int) ([]db.Tender, error) {
	return m.tenders, nil
}

func (m *MockStorage) GetUserTenders(ctx context.Context, creatorID string, limit, offset int) ([]db.Tender, error) {
	return m.userTenders, nil
}

func (m *MockStorage) GetTenderVersion(ctx context.Context, tenderID string, version int) (*db.Tender, error) {
	if m.tenderVersion == nil {
		return nil, sql.ErrNoRows
	}
	return m.tenderVersion, nil
}

func (m *MockStorage) CreateBid(ctx context.Context, bid *db.Bid) error {
	bid.ID = testBidID
	bid.Version = 1
	m.createdBids = append(m.createdBids, bid)
	return nil
}

func (m *MockStorage) GetBid(ctx context.Context, bidID string) (*db.Bid, error) {
	if m.bid == nil {
		return nil, sql.ErrNoRows
	}
	return m.bid, nil
}

func (m *MockStorage) UpdateBid(ctx context.Context, bid *db.Bid) error {
	bid.Version++
	m.updatedBids = append(m.updatedBids, bid)
	return nil
}

func (m *MockStorage) SetBidStatus(ctx context.Context, bid *db.Bid) error {
	m.bidStatusSets = append(m.bidStatusSets, bid)
	return nil
}

func (m *MockStorage) GetBids(ctx context.Context, creatorID string, limit, offset int) ([]db.Bid, error) {
	return m.bids, nil
}

func (m *MockStorage) GetUserBids(ctx context.Context, creatorID string, limit, offset int) ([]db.Bid, error) {
	return m.bids, nil
}

func (m *MockStorage) GetBidsForTender(ctx context.Context, tenderID string) ([]db.Bid, error) {
	return m.tenderBids, nil
}

func (m *MockStorage) GetFirstBidForTender(ctx context.Context, tenderID string) (*db.Bid, error) {
	if m.firstBid == nil {
		return nil, sql.ErrNoRows
	}
	return m.firstBid, nil
}

func (m *MockStorage) GetBidVersion(ctx context.Context, bidID string, version int) (*db.Bid, error) {
	if m.bidVersion == nil {
		return nil, sql.ErrNoRows
	}
	return m.bidVersion, nil
}

func (m *MockStorage) SubmitBidDecision(ctx context.Context, bidID, voterID, decision string) (*db.Bid, error) {
	if m.decisionFunc != nil {
		return m.decisionFunc(ctx, bidID, voterID, decision)
	}
	return m.bid, nil
}

func (m *MockStorage) CreateBidReview(ctx context.Context, review *db.BidReview) error {
	m.createdReviews = append(m.createdReviews, review)
	return nil
}

func (m *MockStorage) GetTenderBidReviews(ctx context.Context, tenderID string) ([]db.BidReview, error) {
	return m.reviews, nil
}

func newTestHandler(store *MockStorage) *handlers.Handler {
	return handlers.NewHandler(store, zap.NewNop())
}

// doRequest выполняет запрос и возвращает статус и тело ответа.
func doRequest(t *testing.T, handlerFunc http.HandlerFunc, req *http.Request) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	handlerFunc(w, req)
	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

func TestPingHandler(t *testing.T) {
	handler := newTestHandler(&MockStorage{})

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	code, body := doRequest(t, handler.PingHandler, req)

	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body)
}
