package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"contactlink/internal/config"
	"contactlink/internal/database"
	"contactlink/internal/metrics"
	"contactlink/internal/models"
	"contactlink/internal/repository"
	"contactlink/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		AllowedOrigins:    []string{"*"},
		ShutdownTimeout:   time.Second,
		ReadHeaderTimeout: time.Second,
	}
}

// IdentifyAPISuite drives the full HTTP stack against a SQLite file.
type IdentifyAPISuite struct {
	suite.Suite
	db  *database.DB
	srv *httptest.Server
}

func TestIdentifyAPISuite(t *testing.T) {
	suite.Run(t, new(IdentifyAPISuite))
}

func (s *IdentifyAPISuite) SetupTest() {
	db, err := database.Open(context.Background(), filepath.Join(s.T().TempDir(), "contacts.db"))
	s.Require().NoError(err)
	s.db = db

	store := repository.NewSQLStore(db.Conn)
	m := metrics.New(nil)
	svc := service.NewReconciliationService(store, zap.NewNop(), m)
	s.srv = httptest.NewServer(New(testConfig(), Deps{
		Identifier: svc,
		Store:      store,
		Metrics:    m,
		Logger:     zap.NewNop(),
	}).Handler())
}

func (s *IdentifyAPISuite) TearDownTest() {
	s.srv.Close()
	s.Require().NoError(s.db.Close())
}

func (s *IdentifyAPISuite) identify(body string) (int, models.ContactResponse) {
	resp, err := http.Post(s.srv.URL+"/identify", "application/json", strings.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out models.IdentifyResponse
	if resp.StatusCode == http.StatusOK {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out.Contact
}

func (s *IdentifyAPISuite) TestReconciliationScenario() {
	status, got := s.identify(`{"email":"lorraine@hillvalley.edu","phoneNumber":"123456"}`)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(int64(1), got.PrimaryContactID)
	s.Empty(got.SecondaryContactIDs)

	status, got = s.identify(`{"email":"mcfly@hillvalley.edu","phoneNumber":"123456"}`)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(models.ContactResponse{
		PrimaryContactID:    1,
		Emails:              []string{"lorraine@hillvalley.edu", "mcfly@hillvalley.edu"},
		PhoneNumbers:        []string{"123456"},
		SecondaryContactIDs: []int64{2},
	}, got)

	for _, body := range []string{
		`{"email":null,"phoneNumber":"123456"}`,
		`{"email":"lorraine@hillvalley.edu","phoneNumber":null}`,
		`{"email":"mcfly@hillvalley.edu"}`,
	} {
		status, again := s.identify(body)
		s.Equal(http.StatusOK, status)
		s.Equal(got, again, body)
	}
}

func (s *IdentifyAPISuite) TestMergeScenario() {
	s.identify(`{"email":"george@hillvalley.edu","phoneNumber":"919191"}`)
	s.identify(`{"email":"biffsucks@hillvalley.edu","phoneNumber":"717171"}`)

	status, got := s.identify(`{"email":"george@hillvalley.edu","phoneNumber":"717171"}`)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(models.ContactResponse{
		PrimaryContactID:    1,
		Emails:              []string{"george@hillvalley.edu", "biffsucks@hillvalley.edu"},
		PhoneNumbers:        []string{"919191", "717171"},
		SecondaryContactIDs: []int64{2},
	}, got)

	var count int
	s.Require().NoError(s.db.Conn.Get(&count, "SELECT COUNT(*) FROM contacts"))
	s.Equal(2, count)
}

func (s *IdentifyAPISuite) TestValidation() {
	status, _ := s.identify(`{}`)
	s.Equal(http.StatusBadRequest, status)

	status, _ = s.identify(`{"email":"nope"}`)
	s.Equal(http.StatusBadRequest, status)
}

func (s *IdentifyAPISuite) TestAuxiliaryRoutes() {
	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/health", http.StatusOK, `"Hi there!"`},
		{http.MethodGet, "/", http.StatusOK, "identity reconciliation"},
		{http.MethodGet, "/ready", http.StatusOK, `"ok"`},
		{http.MethodGet, "/identify", http.StatusMethodNotAllowed, "Method not allowed"},
		{http.MethodGet, "/nope", http.StatusNotFound, "Not found"},
	}
	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, s.srv.URL+tt.path, nil)
		s.Require().NoError(err)
		resp, err := http.DefaultClient.Do(req)
		s.Require().NoError(err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		s.Require().NoError(err)

		s.Equal(tt.status, resp.StatusCode, tt.path)
		s.Contains(string(body), tt.body, tt.path)
		s.NotEmpty(resp.Header.Get("X-Request-ID"), tt.path)
	}
}

func (s *IdentifyAPISuite) TestMetricsEndpoint() {
	s.identify(`{"phoneNumber":"555"}`)

	resp, err := http.Get(s.srv.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	s.Contains(string(body), `contactlink_identify_outcomes_total{outcome="new_primary"} 1`)
	s.Contains(string(body), `contactlink_http_requests_total{method="POST",path="/identify",status="200"} 1`)
}

func TestRateLimitApplied(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	h := New(cfg, Deps{Identifier: service.NewReconciliationService(repository.NewMemoryStore(), nil, nil), Store: repository.NewMemoryStore()}).Handler()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRunStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	srv := New(testConfig(), Deps{Identifier: service.NewReconciliationService(store, nil, nil), Store: store})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
