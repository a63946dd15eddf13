package sparql

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCalibrateClampsToMinimum(t *testing.T) {
	var probes int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&probes, 1)
		_, _ = w.Write([]byte(`{"head":{"vars":["s","p","o"]},"results":{"bindings":[]}}`))
	}))
	defer server.Close()

	calibrator := NewCalibrator(New(server.URL), CalibrationOptions{
		Queries:    3,
		Factor:     10,
		MinTimeout: 2 * time.Second,
		MaxTimeout: 10 * time.Second,
	})
	got, err := calibrator.Calibrate(context.Background())
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if got != 2*time.Second {
		t.Fatalf("expected clamp to min timeout, got %v", got)
	}
	if n := atomic.LoadInt32(&probes); n != 3 {
		t.Fatalf("expected 3 probes, got %d", n)
	}
}

func TestCalibrateScalesSlowestProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(`{"head":{"vars":[]},"results":{"bindings":[]}}`))
	}))
	defer server.Close()

	calibrator := NewCalibrator(New(server.URL), CalibrationOptions{
		Queries:    2,
		Factor:     5,
		MinTimeout: time.Millisecond,
		MaxTimeout: 10 * time.Second,
	})
	got, err := calibrator.Calibrate(context.Background())
	if err != nil {
		t.Fatalf("Calibrate() error = %v", err)
	}
	if got < 100*time.Millisecond || got > 10*time.Second {
		t.Fatalf("expected timeout of at least 5x the probe latency, got %v", got)
	}
}

func TestCalibrateFailsWhenEndpointRejectsProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	if _, err := NewCalibrator(New(server.URL), CalibrationOptions{Queries: 1}).Calibrate(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
