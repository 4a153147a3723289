package server

import (
	"crypto-oracle-bot/internal/alert"
	"crypto-oracle-bot/internal/report"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	status := func() Status {
		return Status{
			Engine: alert.Status{Running: true, Interval: time.Minute, Alerts: 3},
			Report: report.Status{Running: true, Schedule: report.DefaultSchedule, Timezone: "UTC"},
		}
	}
	srv := httptest.NewServer(NewRouter(reg, status))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	code, body := get(t, srv.URL+"/health")
	if code != http.StatusOK || body != "OK" {
		t.Fatalf("unexpected response %d %q", code, body)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	code, body := get(t, srv.URL+"/metrics")
	if code != http.StatusOK || !strings.Contains(body, "test_total 1") {
		t.Fatalf("unexpected response %d %q", code, body)
	}
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t)
	code, body := get(t, srv.URL+"/status")
	if code != http.StatusOK {
		t.Fatalf("unexpected status code %d", code)
	}

	var got Status
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Engine.Running || got.Engine.Alerts != 3 || got.Report.Schedule != "0 9 * * *" {
		t.Fatalf("unexpected status %+v", got)
	}
}
