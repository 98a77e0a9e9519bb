package inference

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deepfakex/server/internal/config"
)

func TestDetectParsesVerdict(t *testing.T) {
	var gotField string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, ok := r.MultipartForm.File["image"]; ok {
			gotField = "image"
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"prediction":"Fake","confidence":0.87,"model":"effnet-b4"}`)
	}))
	defer srv.Close()

	client := NewClient(config.InferenceConfig{URL: srv.URL})
	verdict, err := client.Detect(context.Background(), strings.NewReader("image bytes"), "selfie.jpg")
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}

	if gotField != "image" {
		t.Fatalf("expected multipart field %q to be sent", "image")
	}
	if verdict.Prediction != "Fake" || verdict.Confidence != 0.87 {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
	if verdict.Raw["model"] != "effnet-b4" {
		t.Fatalf("expected raw payload preserved, got %+v", verdict.Raw)
	}
}

func TestDetectNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(config.InferenceConfig{URL: srv.URL})
	_, err := client.Detect(context.Background(), strings.NewReader("x"), "a.jpg")
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestDetectErrorStatusField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"error","message":"no face found"}`)
	}))
	defer srv.Close()

	client := NewClient(config.InferenceConfig{URL: srv.URL})
	_, err := client.Detect(context.Background(), strings.NewReader("x"), "a.jpg")
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestDetectUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut down before calling

	client := NewClient(config.InferenceConfig{URL: srv.URL})
	_, err := client.Detect(context.Background(), strings.NewReader("x"), "a.jpg")
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestDetectMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	client := NewClient(config.InferenceConfig{URL: srv.URL})
	_, err := client.Detect(context.Background(), strings.NewReader("x"), "a.jpg")
	if !errors.Is(err, ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}
