package status

import (
	"encoding/json"
	"errors"
	"expvar"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestService() *Service {
	s := NewService("127.0.0.1:0")
	s.Logger = log.New(ioutil.Discard, "", 0)
	return s
}

func Test_StatusProviders(t *testing.T) {
	s := newTestService()
	s.Register("index", ProviderFunc(func() (map[string]interface{}, error) {
		return map[string]interface{}{"documents": 3}, nil
	}))

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest("GET", "/status?pretty", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("wrong status code, exp %d, got %d", http.StatusOK, w.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("status is not JSON: %s", err.Error())
	}
	if _, ok := raw["uptime"]; !ok {
		t.Fatalf("uptime missing from status: %s", w.Body.String())
	}
	var index map[string]interface{}
	if err := json.Unmarshal(raw["index"], &index); err != nil {
		t.Fatalf("index status is not JSON: %s", err.Error())
	}
	if index["documents"] != float64(3) {
		t.Fatalf("wrong provider status, got %s", w.Body.String())
	}
}

func Test_StatusProviderError(t *testing.T) {
	s := newTestService()
	s.Register("broken", ProviderFunc(func() (map[string]interface{}, error) {
		return nil, errors.New("unavailable")
	}))

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest("GET", "/status", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("wrong status code, exp %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func Test_Expvar(t *testing.T) {
	expvar.NewInt("statusTestCounter").Set(7)
	s := newTestService()

	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest("GET", "/debug/vars", nil))
	var vars map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &vars); err != nil {
		t.Fatalf("expvar output is not JSON: %s", err.Error())
	}
	if vars["statusTestCounter"] != float64(7) {
		t.Fatalf("counter missing from expvar output: %s", w.Body.String())
	}
}

func Test_NotFound(t *testing.T) {
	s := newTestService()
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest("GET", "/nothing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("wrong status code, exp %d, got %d", http.StatusNotFound, w.Code)
	}
}

func Test_StartClose(t *testing.T) {
	s := newTestService()
	if err := s.Start(); err != nil {
		t.Fatalf("failed to start service: %s", err.Error())
	}
	defer s.Close()

	resp, err := http.Get("http://" + s.Addr().String() + "/status")
	if err != nil {
		t.Fatalf("failed to get status: %s", err.Error())
	}
	defer resp.Body.Close()
	b, _ := ioutil.ReadAll(resp.Body)
	if !strings.Contains(string(b), "uptime") {
		t.Fatalf("unexpected status body: %s", string(b))
	}
}
