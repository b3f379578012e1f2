package crypto

import "testing"

func TestHashSHA256_Deterministic(t *testing.T) {
	got1 := HashSHA256([]byte("data"), "k")
	got2 := HashSHA256([]byte("data"), "k")
	if got1 != got2 {
		t.Fatalf("expected deterministic hash, got %q vs %q", got1, got2)
	}
}

func TestHashSHA256_KeyMatters(t *testing.T) {
	a := HashSHA256([]byte("data"), "k1")
	b := HashSHA256([]byte("data"), "k2")
	if a == b {
		t.Fatalf("expected different hashes for different keys")
	}
}

func TestVerify(t *testing.T) {
	body := []byte(`{"model":"M/M/1","rho":0.4}`)
	sig := HashSHA256(body, "secret")

	if !Verify(body, "secret", sig) {
		t.Fatal("expected signature to verify")
	}
	if Verify(body, "other", sig) {
		t.Fatal("expected wrong key to fail")
	}
	if Verify([]byte("tampered"), "secret", sig) {
		t.Fatal("expected tampered body to fail")
	}
	if Verify(body, "secret", "zz-not-hex") {
		t.Fatal("expected malformed signature to fail")
	}
}
