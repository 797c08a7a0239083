package tlsutil

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientConfig(t *testing.T) {
	cfg := ClientConfig()
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %d, want %d", cfg.MinVersion, tls.VersionTLS12)
	}
	if len(cfg.CipherSuites) == 0 {
		t.Fatal("CipherSuites should not be empty")
	}
	for _, cs := range cfg.CipherSuites {
		if !IsAEAD(cs) {
			t.Errorf("unexpected non-AEAD cipher suite: %s", tls.CipherSuiteName(cs))
		}
	}
}

func TestClientConfig_ReturnsCopy(t *testing.T) {
	a := ClientConfig()
	a.CipherSuites[0] = tls.TLS_RSA_WITH_AES_128_CBC_SHA
	b := ClientConfig()
	if !IsAEAD(b.CipherSuites[0]) {
		t.Error("mutating one config must not affect the next")
	}
}

func TestIsAEAD(t *testing.T) {
	if IsAEAD(tls.TLS_RSA_WITH_AES_128_CBC_SHA) {
		t.Error("CBC suite reported as AEAD")
	}
	if !IsAEAD(tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305) {
		t.Error("ChaCha20-Poly1305 should be AEAD")
	}
}

func TestTransport(t *testing.T) {
	tests := []struct {
		name    string
		perHost int
		want    int
	}{
		{"default", 0, http.DefaultMaxIdleConnsPerHost},
		{"negative", -3, http.DefaultMaxIdleConnsPerHost},
		{"custom", 16, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Transport(tt.perHost)
			if tr.TLSClientConfig == nil || tr.TLSClientConfig.MinVersion != tls.VersionTLS12 {
				t.Fatal("transport must carry the hardened TLS config")
			}
			if tr.MaxIdleConnsPerHost != tt.want {
				t.Errorf("MaxIdleConnsPerHost = %d, want %d", tr.MaxIdleConnsPerHost, tt.want)
			}
			if !tr.ForceAttemptHTTP2 {
				t.Error("ForceAttemptHTTP2 should be true")
			}
		})
	}
}

func TestHTTPClient(t *testing.T) {
	timeout := 15 * time.Second
	client := HTTPClient(timeout)
	if client.Timeout != timeout {
		t.Errorf("Timeout = %v, want %v", client.Timeout, timeout)
	}
	if _, ok := client.Transport.(*http.Transport); !ok {
		t.Fatalf("Transport type = %T, want *http.Transport", client.Transport)
	}
}

func TestHTTPClient_PlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := HTTPClient(time.Second).Get(srv.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}
