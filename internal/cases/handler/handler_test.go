package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"caseflow/internal/cases/models"
	"caseflow/internal/cases/service"
	"caseflow/internal/cases/store"
	jwttoken "caseflow/internal/jwt_token"
	"caseflow/internal/outbox"
)

type CaseHandlerSuite struct {
	suite.Suite
	cases  *store.InMemory
	router chi.Router
	token  string
}

func TestCaseHandlerSuite(t *testing.T) {
	suite.Run(t, new(CaseHandlerSuite))
}

func (s *CaseHandlerSuite) SetupTest() {
	s.cases = store.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewService(s.cases, s.cases, outbox.NewInMemory(),
		service.WithLogger(logger))

	jwtService := jwttoken.NewJWTService("test-signing-key", "caseflow-test")
	token, err := jwtService.GenerateActorToken(uuid.New(), "insp. torres", time.Hour)
	s.Require().NoError(err)
	s.token = token

	s.router = chi.NewRouter()
	New(svc, logger, jwttoken.NewJWTServiceAdapter(jwtService)).Register(s.router)
}

func (s *CaseHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *CaseHandlerSuite) TestNormalizeIsOpen() {
	req := httptest.NewRequest(http.MethodGet, "/case-numbers/normalize?number=007/24.0ABC", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
	var resp struct {
		Canonical string   `json:"canonical"`
		Variants  []string `json:"variants"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("7/24.0ABC", resp.Canonical)
	s.Contains(resp.Variants, "7/24.0ABC")
	s.Contains(resp.Variants, "007/24.0ABC")
}

func (s *CaseHandlerSuite) TestMutationsRequireToken() {
	req := httptest.NewRequest(http.MethodPost, "/cases", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *CaseHandlerSuite) TestCreateAndGet() {
	w := s.do(http.MethodPost, "/cases", map[string]any{"case_number": "14/24.0XYZ"})
	s.Require().Equal(http.StatusCreated, w.Code)

	var created models.Case
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.Equal(models.StatePending, created.State)

	w = s.do(http.MethodGet, "/cases/"+created.ID.String(), nil)
	s.Require().Equal(http.StatusOK, w.Code)
}

func (s *CaseHandlerSuite) TestCreateValidatesBody() {
	w := s.do(http.MethodPost, "/cases", map[string]any{})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *CaseHandlerSuite) TestTransitionRecordsActorInHistory() {
	w := s.do(http.MethodPost, "/cases", map[string]any{"case_number": "3/24.0DEF"})
	s.Require().Equal(http.StatusCreated, w.Code)
	var created models.Case
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))

	w = s.do(http.MethodPost, "/cases/"+created.ID.String()+"/transition",
		map[string]any{"new_state": "in-progress", "comment": "picked up"})
	s.Require().Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/cases/"+created.ID.String()+"/history", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		History []models.HistoryEntry `json:"history"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.History, 1)
	s.Equal("insp. torres", resp.History[0].ActorName)
	s.Equal(models.StateInProgress, resp.History[0].NewState)
}

func (s *CaseHandlerSuite) TestIllegalTransitionIsConflict() {
	w := s.do(http.MethodPost, "/cases", map[string]any{"case_number": "3/24.0DEF"})
	s.Require().Equal(http.StatusCreated, w.Code)
	var created models.Case
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))

	w = s.do(http.MethodPost, "/cases/"+created.ID.String()+"/transition",
		map[string]any{"new_state": "court"})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *CaseHandlerSuite) TestGetUnknownCaseIs404() {
	w := s.do(http.MethodGet, "/cases/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, w.Code)
}
