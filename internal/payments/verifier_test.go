package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVerifySuccess(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"orderName":"Sneakers and socks"}`))
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, "test_sk_abc")
	conf, err := v.Verify(context.Background(), "pay-key-1", "toss-1", 40000)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if conf.OrderName != "Sneakers and socks" {
		t.Errorf("OrderName = %q", conf.OrderName)
	}

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("test_sk_abc:"))
	if gotAuth != wantAuth {
		t.Errorf("Authorization = %q, want %q", gotAuth, wantAuth)
	}
	if gotBody["paymentKey"] != "pay-key-1" || gotBody["orderId"] != "toss-1" {
		t.Errorf("request body = %v", gotBody)
	}
	if amt, ok := gotBody["amount"].(float64); !ok || int64(amt) != 40000 {
		t.Errorf("amount = %v, want 40000", gotBody["amount"])
	}
}

func TestVerifyGatewayRejection(t *testing.T) {
	const rejection = `{"code":"NOT_FOUND_PAYMENT","message":"unknown payment"}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(rejection))
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, "test_sk_abc")
	_, err := v.Verify(context.Background(), "bad-key", "toss-1", 40000)

	var ve *VerificationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *VerificationError", err)
	}
	if ve.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", ve.StatusCode)
	}
	if string(ve.Body) != rejection {
		t.Errorf("Body = %q, want the gateway response verbatim", ve.Body)
	}
}

func TestVerifyUnreachableGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	v := NewVerifier(srv.URL, "test_sk_abc")
	_, err := v.Verify(context.Background(), "pay-key-1", "toss-1", 40000)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var ve *VerificationError
	if errors.As(err, &ve) {
		t.Fatalf("transport failure misreported as gateway rejection: %v", err)
	}
}
