package payapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPClient_Call(t *testing.T) {
	t.Run("posts JSON and decodes the result", func(t *testing.T) {
		var gotPath, gotContentType, gotRequestID, gotAuth string
		var gotPayload map[string]interface{}

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotContentType = r.Header.Get("Content-Type")
			gotRequestID = r.Header.Get("X-Request-Id")
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&gotPayload)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"SUCCESS","token":"tok_1"}`))
		}))
		defer srv.Close()

		client, err := NewHTTPClient(srv.URL, "secret", nil)
		if err != nil {
			t.Fatalf("NewHTTPClient failed: %v", err)
		}

		result, err := client.Call(context.Background(), OpTokenizeCard, map[string]interface{}{"pan": "4242"})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if result["status"] != "SUCCESS" || result["token"] != "tok_1" {
			t.Errorf("unexpected result %v", result)
		}
		if gotPath != "/"+OpTokenizeCard {
			t.Errorf("unexpected path %q", gotPath)
		}
		if gotContentType != "application/json" {
			t.Errorf("unexpected content type %q", gotContentType)
		}
		if gotRequestID == "" {
			t.Error("expected an X-Request-Id header")
		}
		if gotAuth != "Bearer secret" {
			t.Errorf("unexpected authorization %q", gotAuth)
		}
		if gotPayload["pan"] != "4242" {
			t.Errorf("unexpected payload %v", gotPayload)
		}
	})

	t.Run("4xx JSON body is a rejection result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"status":"REJECTED","code":"INVALID_PAN"}`))
		}))
		defer srv.Close()

		client, _ := NewHTTPClient(srv.URL, "", nil)
		result, err := client.Call(context.Background(), OpTokenizeCard, nil)
		if err != nil {
			t.Fatalf("expected a rejection result, got error %v", err)
		}
		if result["status"] != "REJECTED" || result["code"] != "INVALID_PAN" {
			t.Errorf("unexpected rejection %v", result)
		}
	})

	t.Run("4xx with unreadable body is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		client, _ := NewHTTPClient(srv.URL, "", nil)
		if _, err := client.Call(context.Background(), OpBindDevice, nil); err == nil {
			t.Error("expected an error for an undecodable 4xx body")
		}
	})

	t.Run("5xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client, _ := NewHTTPClient(srv.URL, "", nil)
		_, err := client.Call(context.Background(), OpValidateOTP, nil)
		if err == nil {
			t.Fatal("expected an error for a 5xx response")
		}
		if !strings.Contains(err.Error(), "502") {
			t.Errorf("expected the status in the error, got %v", err)
		}
	})

	t.Run("empty 2xx body decodes to an empty result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		client, _ := NewHTTPClient(srv.URL, "", nil)
		result, err := client.Call(context.Background(), OpDeleteCard, nil)
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if len(result) != 0 {
			t.Errorf("expected an empty result, got %v", result)
		}
	})

	t.Run("no bearer header without an API key", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client, _ := NewHTTPClient(srv.URL, "", nil)
		if _, err := client.Call(context.Background(), OpTokenStatus, nil); err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if gotAuth != "" {
			t.Errorf("unexpected authorization header %q", gotAuth)
		}
	})

	t.Run("request IDs are unique per call", func(t *testing.T) {
		seen := map[string]bool{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen[r.Header.Get("X-Request-Id")] = true
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		client, _ := NewHTTPClient(srv.URL, "", nil)
		for i := 0; i < 3; i++ {
			if _, err := client.Call(context.Background(), OpTokenStatus, nil); err != nil {
				t.Fatalf("Call failed: %v", err)
			}
		}
		if len(seen) != 3 {
			t.Errorf("expected 3 distinct request IDs, got %d", len(seen))
		}
	})
}

func TestHTTPClient_Validation(t *testing.T) {
	if _, err := NewHTTPClient("", "", nil); err == nil {
		t.Error("expected an error for an empty base URL")
	}

	client, err := NewHTTPClient("http://localhost:0", "", nil)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	if _, err := client.Call(context.Background(), "", nil); err == nil {
		t.Error("expected an error for an empty operation")
	}
}
