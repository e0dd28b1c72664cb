package integration

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TestToken returns a signed JWT suitable for test mode authentication. The
// token grants role inside the listed accounts.
func TestToken(userID, role string, accountIDs ...int64) (string, error) {
	secret := os.Getenv("TEST_JWT_SECRET")
	if secret == "" {
		secret = "testsecret"
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         userID,
		"role":        role,
		"account_ids": accountIDs,
		"exp":         time.Now().Add(time.Hour).Unix(),
	})
	return token.SignedString([]byte(secret))
}
