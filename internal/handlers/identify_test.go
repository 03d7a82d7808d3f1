package handlers

//go:generate mockgen -source=identify.go -destination=mocks/identifier_mock.go -package=mocks Identifier
//go:generate mockgen -source=health.go -destination=mocks/pinger_mock.go -package=mocks Pinger

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"contactlink/internal/handlers/mocks"
	"contactlink/internal/models"
	"contactlink/internal/service"
)

type IdentifyHandlerSuite struct {
	suite.Suite
	service *mocks.MockIdentifier
	logs    *observer.ObservedLogs
	handler *IdentifyHandler
}

func TestIdentifyHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentifyHandlerSuite))
}

func (s *IdentifyHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockIdentifier(ctrl)
	core, logs := observer.New(zapcore.InfoLevel)
	s.logs = logs
	s.handler = NewIdentifyHandler(s.service, zap.New(core))
}

func (s *IdentifyHandlerSuite) post(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/identify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.Handle(w, req)
	return w
}

func strPtr(v string) *string { return &v }

func (s *IdentifyHandlerSuite) TestSuccess() {
	s.service.EXPECT().
		Identify(gomock.Any(), models.IdentifyRequest{Email: strPtr("mcfly@hillvalley.edu"), PhoneNumber: strPtr("123456")}).
		Return(&models.IdentifyResponse{Contact: models.ContactResponse{
			PrimaryContactID:    1,
			Emails:              []string{"lorraine@hillvalley.edu", "mcfly@hillvalley.edu"},
			PhoneNumbers:        []string{"123456"},
			SecondaryContactIDs: []int64{23},
		}}, nil)

	w := s.post(`{"email":" mcfly@hillvalley.edu ","phoneNumber":"123456"}`)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("application/json", w.Header().Get("Content-Type"))
	s.JSONEq(`{"contact":{
		"primaryContatctId":1,
		"emails":["lorraine@hillvalley.edu","mcfly@hillvalley.edu"],
		"phoneNumbers":["123456"],
		"secondaryContactIds":[23]
	}}`, w.Body.String())
}

func (s *IdentifyHandlerSuite) TestNullAndBlankFieldsAreAbsent() {
	s.service.EXPECT().
		Identify(gomock.Any(), models.IdentifyRequest{PhoneNumber: strPtr("123456")}).
		Return(&models.IdentifyResponse{Contact: models.ContactResponse{PrimaryContactID: 1}}, nil)

	w := s.post(`{"email":null,"phoneNumber":"123456"}`)
	s.Equal(http.StatusOK, w.Code)
}

func (s *IdentifyHandlerSuite) TestRejectsBadRequests() {
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"empty body", ``, http.StatusBadRequest, "request body is required"},
		{"malformed json", `{"email":`, http.StatusBadRequest, "request body is not valid JSON"},
		{"not an object", `[1,2]`, http.StatusBadRequest, "request body must be a JSON object"},
		{"numeric phone", `{"phoneNumber":123456}`, http.StatusBadRequest, "phoneNumber must be a string or null"},
		{"no identifiers", `{}`, http.StatusBadRequest, "Either email or phoneNumber must be provided"},
		{"both null", `{"email":null,"phoneNumber":null}`, http.StatusBadRequest, "Either email or phoneNumber must be provided"},
		{"blank values", `{"email":"  ","phoneNumber":""}`, http.StatusBadRequest, "Either email or phoneNumber must be provided"},
		{"invalid email", `{"email":"not-an-email"}`, http.StatusBadRequest, "email must be a valid email address"},
		{"long phone", `{"phoneNumber":"` + strings.Repeat("1", 65) + `"}`, http.StatusBadRequest, "phoneNumber must be at most 64 characters"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.post(tt.body)
			s.Equal(tt.status, w.Code)
			s.JSONEq(fmt.Sprintf(`{"message":%q}`, tt.message), w.Body.String())
		})
	}
}

func (s *IdentifyHandlerSuite) TestOversizedBody() {
	body := `{"email":"` + strings.Repeat("a", maxBodyBytes) + `@x.com"}`
	req := httptest.NewRequest(http.MethodPost, "/identify", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	s.handler.Handle(w, req)

	s.Equal(http.StatusRequestEntityTooLarge, w.Code)
}

func (s *IdentifyHandlerSuite) TestServiceFailureIsOpaque() {
	s.service.EXPECT().
		Identify(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	w := s.post(`{"phoneNumber":"123456"}`)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.JSONEq(`{"message":"Internal server error"}`, w.Body.String())
	entries := s.logs.FilterMessage("identify failed").All()
	s.Require().Len(entries, 1)
	s.Equal("connection refused", entries[0].ContextMap()["error"])
}

func (s *IdentifyHandlerSuite) TestServiceValidationErrorIsClientError() {
	s.service.EXPECT().
		Identify(gomock.Any(), gomock.Any()).
		Return(nil, service.ErrNoIdentifier)

	w := s.post(`{"phoneNumber":"123456"}`)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Empty(s.logs.All())
}
