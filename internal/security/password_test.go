package security

import "testing"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")

	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if hash == "correct horse battery staple" {
		t.Fatalf("password stored in the clear")
	}

	if err := CheckPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("check with right password: %v", err)
	}

	if err := CheckPassword(hash, "wrong horse"); err == nil {
		t.Fatalf("wrong password accepted")
	}
}

func TestBurnComparisonNeverPanics(t *testing.T) {
	// it only exists to equalize timing, any input must be safe
	BurnComparison("")
	BurnComparison("some password attempt")
}
