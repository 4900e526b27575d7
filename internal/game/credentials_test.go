package game

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func validToken(t *testing.T) string {
	return signedToken(t, jwt.MapClaims{"sub": "rider-1", "exp": time.Now().Add(time.Hour).Unix()})
}

func TestValidateAccessToken(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"valid", signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), nil},
		{"empty", "", ErrNoCredentials},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"no expiry", signedToken(t, jwt.MapClaims{"sub": "rider-1"}), ErrInvalidToken},
		{"expired", signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), ErrTokenExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAccessToken(tc.token, now)
			if tc.want == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
