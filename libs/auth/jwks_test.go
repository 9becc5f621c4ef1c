package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestJWKSClientCachesAndFallsBack(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var (
		hits    atomic.Int32
		failing atomic.Bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(jwkSet{Keys: []jwk{{
			Kty: "RSA",
			Kid: "k1",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(priv.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(priv.E)).Bytes()),
		}}})
	}))
	defer srv.Close()

	now := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	c := NewJWKSClient(srv.URL, time.Minute)
	c.now = func() time.Time { return now }

	key, err := c.Get("k1")
	if err != nil || key.N.Cmp(priv.N) != 0 {
		t.Fatalf("expected served key, got %v", err)
	}
	if _, err := c.Get("k1"); err != nil || hits.Load() != 1 {
		t.Fatalf("expected cached key without refetch, hits=%d err=%v", hits.Load(), err)
	}
	if _, err := c.Get("unknown"); !errors.Is(err, ErrKeyNotFound) || hits.Load() != 1 {
		t.Fatalf("expected throttled lookup, hits=%d err=%v", hits.Load(), err)
	}
	now = now.Add(minRefreshInterval)
	if _, err := c.Get("unknown"); !errors.Is(err, ErrKeyNotFound) || hits.Load() != 2 {
		t.Fatalf("expected one refetch for the unknown kid, hits=%d err=%v", hits.Load(), err)
	}

	failing.Store(true)
	now = now.Add(2 * time.Minute)
	if _, err := c.Get("k1"); err != nil {
		t.Fatalf("expected stale key when refresh fails, got %v", err)
	}
}
