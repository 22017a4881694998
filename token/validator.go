package token

import (
	"fmt"
	"net/http"

	"github.com/fiware/idm-consent/model"
	"github.com/golang-jwt/jwt/v4"
)

/**
* Verifies signature and structure of the tokens issued by this service.
* Callers must not leak the distinction between the individual failure
* reasons, every failure collapses to an unauthenticated request.
 */
type TokenValidator struct {
	verificationKey []byte
	providerId      string
	Clock           Clock
}

func NewTokenValidator(verificationKey []byte, providerId string) *TokenValidator {
	tokenValidator := new(TokenValidator)
	tokenValidator.verificationKey = verificationKey
	tokenValidator.providerId = providerId
	tokenValidator.Clock = RealClock{}
	return tokenValidator
}

func (tv *TokenValidator) ParseAndVerify(tokenString string) (claims *model.IdentityClaims, httpErr model.HttpError) {

	// the parser's own claims validation is tied to the wall clock, the time
	// based claims are checked against the injected clock below instead
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, &model.IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid_token_method")
		}
		return tv.verificationKey, nil
	})

	if err != nil {
		return claims, model.HttpError{Status: http.StatusUnauthorized, Message: fmt.Sprintf("Was not able to parse token. Error: %v", err), RootError: err}
	}
	if !token.Valid {
		return claims, model.HttpError{Status: http.StatusUnauthorized, Message: "Did not receive a valid token.", RootError: nil}
	}

	identityClaims := token.Claims.(*model.IdentityClaims)
	now := tv.Clock.Now()
	if !identityClaims.VerifyExpiresAt(now, true) {
		return claims, model.HttpError{Status: http.StatusUnauthorized, Message: "Token is expired.", RootError: nil}
	}
	if !identityClaims.VerifyIssuedAt(now, false) {
		return claims, model.HttpError{Status: http.StatusUnauthorized, Message: "Token is not valid yet.", RootError: nil}
	}
	if tv.providerId != "" && !identityClaims.VerifyIssuer(tv.providerId, true) {
		return claims, model.HttpError{Status: http.StatusUnauthorized, Message: "Token was issued by another provider.", RootError: nil}
	}
	return identityClaims, httpErr
}
