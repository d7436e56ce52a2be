package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
)

const testRouteBookID = "b:cb8f2136-fae4-4200-85d9-3533c7f8c70d"

// newRouteTestAPI serves known books from a mocked storage so every
// implemented route answers with something else than 404.
func newRouteTestAPI(t *testing.T, config *Config) *APIHandler {
	t.Helper()
	_, client := newTestRedis(t)
	clock := NewMockClocker()
	storage := &MockBookStorage{
		GetAllFunc:           func(ctx context.Context) ([]Book, error) { return []Book{}, nil },
		GetOneFunc:           func(ctx context.Context, id string) (Book, error) { return Book{ID: id}, nil },
		ExistsFunc:           func(ctx context.Context, id string) (bool, error) { return true, nil },
		CountSuggestionsFunc: func(ctx context.Context, userID string) (int, error) { return 0, nil },
	}
	bs := NewBookService(zap.NewNop(), &config.Voting, clock, NewMockUIDHandler("abc", true), storage, NewMockQueue())
	ledger := NewVoteLedger(zap.NewNop(), &config.Voting, clock, NewIDsHandler(), storage, NewRedisVoteStore(zap.NewNop(), client, 1), NewMockQueue())
	return NewAPIHandler(zap.NewNop(), config, &Statistics{started: clock.Now()}, clock, NewMockUIDHandler("abc", true), bs, ledger, newTestBoltArchive(t))
}

// TestSetupBookRoutes ensures all expected book and vote endpoints are implemented.
func TestSetupBookRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		method      string
		path        string
		implemented bool
	}{
		{"index endpoint", http.MethodGet, "/", true},
		{"status endpoint", http.MethodGet, "/status", true},
		{"suggest book endpoint", http.MethodPost, "/v1/books", true},
		{"fetch all books endpoint", http.MethodGet, "/v1/books", true},
		{"fetch single book endpoint", http.MethodGet, "/v1/books/" + testRouteBookID, true},
		{"book vote state endpoint", http.MethodGet, "/v1/books/" + testRouteBookID + "/votes", true},
		{"cast vote endpoint", http.MethodPost, "/v1/books/" + testRouteBookID + "/votes", true},
		{"retract vote endpoint", http.MethodDelete, "/v1/books/" + testRouteBookID + "/votes", true},
		{"user votes endpoint", http.MethodGet, "/v1/me/votes", true},
		{"user suggestions endpoint", http.MethodGet, "/v1/me/suggestions", true},
		{"update book endpoint", http.MethodPut, "/v1/books/" + testRouteBookID, false},
		{"delete book endpoint", http.MethodDelete, "/v1/books/" + testRouteBookID, false},
		{"invalid api endpoint", http.MethodGet, "/v1", false},
		{"invalid books endpoint", http.MethodGet, "/books", false},
	}

	api := newRouteTestAPI(t, &Config{})
	router := httprouter.New()
	router.HandleMethodNotAllowed = false
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	api.SetupBookRoutes(router, m)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			if tc.implemented {
				assert.NotEqual(t, http.StatusNotFound, w.Code)
			} else {
				assert.Equal(t, http.StatusNotFound, w.Code)
			}
		})
	}
}

// TestSetupOpsRoutes ensures all expected operations endpoints are implemented.
func TestSetupOpsRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		method      string
		path        string
		implemented bool
	}{
		{"fetch configs endpoint", http.MethodGet, "/ops/configs", true},
		{"fetch stats endpoint", http.MethodGet, "/ops/stats", true},
		{"maintenance mode endpoint", http.MethodGet, "/ops/maintenance", true},
		{"memory stats endpoint", http.MethodGet, "/ops/debug/vars", true},
		{"invalid ops endpoint", http.MethodGet, "/ops", false},
		{"unknown ops endpoint", http.MethodGet, "/ops/unknown", false},
		{"disabled profiler endpoint", http.MethodGet, "/ops/debug/pprof/", false},
	}

	api := newRouteTestAPI(t, &Config{ProfilerEnable: false})
	router := httprouter.New()
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	api.SetupOpsRoutes(router, m)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			if tc.implemented {
				assert.NotEqual(t, http.StatusNotFound, w.Code)
			} else {
				assert.Equal(t, http.StatusNotFound, w.Code)
			}
		})
	}
}

// TestSetupRoutes ensures ops endpoints only exist when enabled.
func TestSetupRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		opsEnable   bool
		method      string
		path        string
		implemented bool
	}{
		{"ops disable:fetch configs endpoint", false, http.MethodGet, "/ops/configs", false},
		{"ops enable:fetch configs endpoint", true, http.MethodGet, "/ops/configs", true},
		{"ops disable:reconcile endpoint", false, http.MethodPost, "/ops/votes/reconcile", false},
		{"ops enable:reconcile endpoint", true, http.MethodPost, "/ops/votes/reconcile", true},
		{"ops enable:book reconcile endpoint", true, http.MethodPost, "/ops/books/" + testRouteBookID + "/reconcile", true},
		{"ops enable:vote logs endpoint", true, http.MethodGet, "/ops/votes/logs", true},
		{"ops enable:archived books endpoint", true, http.MethodGet, "/ops/archive/books", true},
		{"ops enable:disabled profiler endpoint", true, http.MethodGet, "/ops/debug/pprof/", false},
		{"ops disable:fetch all books endpoint", false, http.MethodGet, "/v1/books", true},
		{"invalid ops endpoint", false, http.MethodGet, "/ops/", false},
		{"invalid book endpoint", false, http.MethodGet, "/books/", false},
	}

	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newRouteTestAPI(t, &Config{OpsEnable: tc.opsEnable})
			router := api.SetupRoutes(httprouter.New(), m)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			if tc.implemented {
				assert.NotEqual(t, http.StatusNotFound, w.Code)
			} else {
				assert.Equal(t, http.StatusNotFound, w.Code)
			}
		})
	}
}

// TestSetupRoutes_NotFound ensures exact status code and json response body when a user requests an inexistant route.
func TestSetupRoutes_NotFound(t *testing.T) {
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	api := newRouteTestAPI(t, &Config{})
	router := api.SetupRoutes(httprouter.New(), m)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x/books/", nil))

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"requestid":"", "status":404, "message":"resource not found", "data":{}}`, string(data))
}

// TestSwaggerDocMatchesAnnotations ensures the served swagger document lists
// exactly the operations declared by the handlers @Router annotations.
func TestSwaggerDocMatchesAnnotations(t *testing.T) {
	routerLine := regexp.MustCompile(`@Router\s+(\S+)\s+\[(\w+)\]`)
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)

	annotated := []string{}
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		data, err := os.ReadFile(name)
		require.NoError(t, err)
		for _, m := range routerLine.FindAllStringSubmatch(string(data), -1) {
			annotated = append(annotated, strings.ToLower(m[2])+" "+m[1])
		}
	}

	raw, err := swag.ReadDoc()
	require.NoError(t, err)
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	documented := []string{}
	for path, ops := range doc.Paths {
		for method := range ops {
			documented = append(documented, method+" "+path)
		}
	}

	sort.Strings(annotated)
	sort.Strings(documented)
	assert.Equal(t, annotated, documented)
	assert.Contains(t, documented, "get /v1/books/{id}/votes")
	assert.Contains(t, documented, "post /ops/votes/reconcile")
}
