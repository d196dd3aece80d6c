package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SoloMen88/tenderServise/db"
	"github.com/SoloMen88/tenderServise/internal/handlers/testutils"
)

func TestGetTendersHandler(t *testing.T) {
	mockStore := &MockStorage{
		tenders: []db.Tender{{ID: testTenderID, Name: "Sample Tender", Status: db.TenderStatusPublished}},
	}
	handler := newTestHandler(mockStore)

	// аноним видит только опубликованные, запрос без username валиден
	req := httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
	code, body := doRequest(t, handler.GetTendersHandler, req)

	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "Sample Tender")
}

func TestGetTendersHandlerUnknownUser(t *testing.T) {
	handler := newTestHandler(&MockStorage{})

	req := httptest.NewRequest(http.MethodGet, "/api/tenders?username=ghost", nil)
	code, _ := doRequest(t, handler.GetTendersHandler, req)

	require.Equal(t, http.StatusUnauthorized, code)
}

func TestCreateTenderHandler(t *testing.T) {
	mockStore := &MockStorage{
		employees:   map[string]*db.Employee{"user1": {ID: testUserID, Username: "user1"}},
		responsible: true,
	}
	handler := newTestHandler(mockStore)

	reqBody := `{
        "name": "Test Tender",
        "description": "Desc",
        "serviceType": "Construction",
        "organizationId": "` + testOrgID + `",
        "creatorUsername": "user1"
    }`
	req := httptest.NewRequest(http.MethodPost, "/api/tenders/new", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	code, body := doRequest(t, handler.CreateTenderHandler, req)

	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "Test Tender")
	require.Len(t, mockStore.createdTenders, 1)

	created := mockStore.createdTenders[0]
	require.Equal(t, db.TenderStatusCreated, created.Status)
	require.Equal(t, testUserID, created.CreatorID)
	require.Equal(t, 1, created.Version)
}

func TestCreateTenderHandlerErrors(t *testing.T) {
	validBody := `{
        "name": "Test Tender",
        "description": "Desc",
        "serviceType": "Construction",
        "organizationId": "` + testOrgID + `",
        "creatorUsername": "user1"
    }`

	t.Run("unknown user", func(t *testing.T) {
		handler := newTestHandler(&MockStorage{responsible: true})

		req := httptest.NewRequest(http.MethodPost, "/api/tenders/new", strings.NewReader(validBody))
		code, _ := doRequest(t, handler.CreateTenderHandler, req)
		require.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("not responsible", func(t *testing.T) {
		handler := newTestHandler(&MockStorage{
			employees: map[string]*db.Employee{"user1": {ID: testUserID}},
		})

		req := httptest.NewRequest(http.MethodPost, "/api/tenders/new", strings.NewReader(validBody))
		code, _ := doRequest(t, handler.CreateTenderHandler, req)
		require.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("invalid service type", func(t *testing.T) {
		mockStore := &MockStorage{
			employees:   map[string]*db.Employee{"user1": {ID: testUserID}},
			responsible: true,
		}
		handler := newTestHandler(mockStore)

		body := strings.Replace(validBody, "Construction", "Consulting", 1)
		req := httptest.NewRequest(http.MethodPost, "/api/tenders/new", strings.NewReader(body))
		code, _ := doRequest(t, handler.CreateTenderHandler, req)
		require.Equal(t, http.StatusBadRequest, code)
		require.Empty(t, mockStore.createdTenders)
	})
}

func TestGetUserTendersHandler(t *testing.T) {
	mockStore := &MockStorage{
		employees:   map[string]*db.Employee{"user1": {ID: testUserID}},
		userTenders: []db.Tender{{ID: testTenderID, Name: "User Tender"}},
	}
	handler := newTestHandler(mockStore)

	req := httptest.NewRequest(http.MethodGet, "/api/tenders/my?username=user1", nil)
	code, body := doRequest(t, handler.GetUserTendersHandler, req)

	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "User Tender")
}

// Пользователь без тендеров получает 401, а не пустой список.
func TestGetUserTendersHandlerEmpty(t *testing.T) {
	mockStore := &MockStorage{
		employees: map[string]*db.Employee{"user1": {ID: testUserID}},
	}
	handler := newTestHandler(mockStore)

	req := httptest.NewRequest(http.MethodGet, "/api/tenders/my?username=user1", nil)
	code, _ := doRequest(t, handler.GetUserTendersHandler, req)

	require.Equal(t, http.StatusUnauthorized, code)
}

func TestGetTenderStatusHandler(t *testing.T) {
	mockStore := &MockStorage{
		employees: map[string]*db.Employee{
			"creator": {ID: testUserID},
			"other":   {ID: testOtherID},
		},
		tender: &db.Tender{ID: testTenderID, Status: db.TenderStatusCreated, CreatorID: testUserID},
	}
	handler := newTestHandler(mockStore)

	t.Run("creator sees unpublished status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tenders/"+testTenderID+"/status?username=creator", nil)
		req = testutils.WithChiURLParams(req, map[string]string{"tenderId": testTenderID})
		code, body := doRequest(t, handler.GetTenderStatusHandler, req)

		require.Equal(t, http.StatusOK, code)
		require.Contains(t, body, db.TenderStatusCreated)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tenders/"+testTenderID+"/status?username=other", nil)
		req = testutils.WithChiURLParams(req, map[string]string{"tenderId": testTenderID})
		code, _ := doRequest(t, handler.GetTenderStatusHandler, req)

		require.Equal(t, http.StatusForbidden, code)
	})

	t.Run("published is visible to anyone", func(t *testing.T) {
		mockStore.tender.Status = db.TenderStatusPublished
		req := httptest.NewRequest(http.MethodGet, "/api/tenders/"+testTenderID+"/status?username=other", nil)
		req = testutils.WithChiURLParams(req, map[string]string{"tenderId": testTenderID})
		code, body := doRequest(t, handler.GetTenderStatusHandler, req)

		require.Equal(t, http.StatusOK, code)
		require.Contains(t, body, db.TenderStatusPublished)
	})
}

func TestUpdateTenderStatusHandler(t *testing.T) {
	mockStore := &MockStorage{
		employees: map[string]*db.Employee{
			"creator": {ID: testUserID},
			"other":   {ID: testOtherID},
		},
		tender: &db.Tender{ID: testTenderID, Status: db.TenderStatusCreated, CreatorID: testUserID},
	}
	handler := newTestHandler(mockStore)

	t.Run("creator publishes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/tenders/"+testTenderID+"/status?username=creator&status=Published", nil)
		req = testutils.WithChiURLParams(req, map[string]string{"tenderId": testTenderID})
		code, body := doRequest(t, handler.UpdateTenderStatusHandler, req)

		require.Equal(t, http.StatusOK, code)
		require.Contains(t, body, db.TenderStatusPublished)
		require.Len(t, mockStore.tenderStatusSets, 1)
	})

	t.Run("invalid status value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/tenders/"+testTenderID+"/status?username=creator&status=Archived", nil)
		req = testutils.WithChiURLParams(req, map[string]string{"tenderId": testTenderID})
		code, _ := doRequest(t, handler.UpdateTenderStatusHandler, req)

		require.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/tenders/"+testTenderID+"/status?username=other&status=Closed", nil)
		req = testutils.WithChiURLParams(req, map[string]string{"tenderId": testTenderID})
		code, _ := doRequest(t, handler.UpdateTenderStatusHandler, req)

		require.Equal(t, http.StatusForbidden, code)
	})
}

func TestEditTenderHandler(t *testing.T) {
	mockStore := &MockStorage{
		employees: map[string]*db.Employee{"creator": {ID: testUserID}},
		tender: &db.Tender{
			ID: testTenderID, Name: "Old Name", CreatorID: testUserID, Version: 1,
		},
	}
	handler := newTestHandler(mockStore)

	req := httptest.NewRequest(http.MethodPatch, "/api/tenders/"+testTenderID+"/edit?username=creator",
		strings.NewReader(`{"name":"Updated Tender"}`))
	req.Header.Set("Content-Type", "application/json")
	req = testutils.WithChiURLParams(req, map[string]string{"tenderId": testTenderID})
	code, body := doRequest(t, handler.EditTenderHandler, req)

	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "Updated Tender")
	require.Len(t, mockStore.updatedTenders, 1)
	require.Equal(t, 2, mockStore.tender.Version)
}

func TestEditTenderHandlerForbidden(t *testing.T) {
	mockStore := &MockStorage{
		employees: map[string]*db.Employee{"other": {ID: testOtherID}},
		tender:    &db.Tender{ID: testTenderID, CreatorID: testUserID},
	}
	handler := newTestHandler(mockStore)

	req := httptest.NewRequest(http.MethodPatch, "/api/tenders/"+testTenderID+"/edit?username=other",
		strings.NewReader(`{"name":"Updated Tender"}`))
	req = testutils.WithChiURLParams(req, map[string]string{"tenderId": testTenderID})
	code, _ := doRequest(t, handler.EditTenderHandler, req)

	require.Equal(t, http.StatusForbidden, code)
	require.Empty(t, mockStore.updatedTenders)
}

func TestRollbackTenderHandler(t *testing.T) {
	mockStore := &MockStorage{
		employees: map[string]*db.Employee{"creator": {ID: testUserID}},
		tender: &db.Tender{
			ID: testTenderID, Name: "Version Three", Status: db.TenderStatusPublished,
			CreatorID: testUserID, Version: 3,
		},
		tenderVersion: &db.Tender{
			ID: testTenderID, Name: "Version One", Status: db.TenderStatusCreated,
			CreatorID: testUserID, Version: 1,
		},
	}
	handler := newTestHandler(mockStore)

	req := httptest.NewRequest(http.MethodPut, "/api/tenders/"+testTenderID+"/rollback/1?username=creator", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"tenderId": testTenderID, "version": "1"})
	code, body := doRequest(t, handler.RollbackTenderHandler, req)

	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "Version One")
	require.Len(t, mockStore.updatedTenders, 1)

	// откат — обычное версионируемое изменение: поля из снимка, версия +1
	require.Equal(t, "Version One", mockStore.tender.Name)
	require.Equal(t, db.TenderStatusCreated, mockStore.tender.Status)
	require.Equal(t, 4, mockStore.tender.Version)
}

func TestRollbackTenderHandlerVersionNotFound(t *testing.T) {
	mockStore := &MockStorage{
		employees: map[string]*db.Employee{"creator": {ID: testUserID}},
		tender:    &db.Tender{ID: testTenderID, CreatorID: testUserID, Version: 2},
	}
	handler := newTestHandler(mockStore)

	req := httptest.NewRequest(http.MethodPut, "/api/tenders/"+testTenderID+"/rollback/7?username=creator", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"tenderId": testTenderID, "version": "7"})
	code, _ := doRequest(t, handler.RollbackTenderHandler, req)

	require.Equal(t, http.StatusNotFound, code)
	require.Empty(t, mockStore.updatedTenders)
}
