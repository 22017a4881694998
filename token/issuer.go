package token

import (
	"strings"
	"time"

	"github.com/fiware/idm-consent/logging"
	"github.com/fiware/idm-consent/model"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var logger = logging.Log()

/**
* Fixed lifetime of dashboard tokens.
 */
const DashboardTokenValidity = 24 * time.Hour

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

/**
* Issues the tokens handed out by this service. Signs with the process-wide
* symmetric key, the key is immutable after startup.
 */
type TokenIssuer struct {
	signingKey []byte
	providerId string
	Clock      Clock
}

func NewTokenIssuer(signingKey []byte, providerId string) *TokenIssuer {
	tokenIssuer := new(TokenIssuer)
	tokenIssuer.signingKey = signingKey
	tokenIssuer.providerId = providerId
	tokenIssuer.Clock = RealClock{}
	return tokenIssuer
}

/**
* Issues a token for the user's own management session. Carries a standard
* exp claim, its lifetime is not subject to consent updates.
 */
func (ti *TokenIssuer) IssueDashboardToken(user model.User) (signedToken string, httpErr model.HttpError) {
	return ti.issue(user, "", ti.Clock.Now().Add(DashboardTokenValidity))
}

/**
* Issues a token bound to the given client. The exp claim is only an upper
* bound, the effective lifetime is computed by the authentication gate from
* the current consent record for (user, clientId) on every request.
 */
func (ti *TokenIssuer) IssueConsentToken(user model.User, clientId string) (signedToken string, httpErr model.HttpError) {
	return ti.issue(user, clientId, ti.Clock.Now().Add(model.OneMonth.Duration()))
}

func (ti *TokenIssuer) issue(user model.User, clientId string, expiresAt time.Time) (signedToken string, httpErr model.HttpError) {

	randomUuid, err := uuid.NewRandom()
	if err != nil {
		logger.Warnf("Was not able to generate a uuid to be used as jti. Err: %v", err)
		return signedToken, model.HttpError{Status: 500, Message: "Was not able to generate a token id.", RootError: err}
	}

	now := ti.Clock.Now()
	claims := model.IdentityClaims{
		UserId:   user.Id,
		Roles:    strings.Join(user.Roles, ","),
		ClientId: clientId,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        randomUuid.String(),
			Issuer:    ti.providerId,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signedToken, err = jwtToken.SignedString(ti.signingKey)
	if err != nil {
		logger.Warnf("Was not able to sign the token. Err: %v", err)
		return signedToken, model.HttpError{Status: 500, Message: "Was not able to sign the token.", RootError: err}
	}
	return signedToken, httpErr
}
