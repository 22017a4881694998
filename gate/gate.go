package gate

import (
	"net/http"
	"strings"
	"time"

	"github.com/fiware/idm-consent/logging"
	"github.com/fiware/idm-consent/model"
	"github.com/fiware/idm-consent/token"
	"github.com/gin-gonic/gin"
)

var logger = logging.Log()

/**
* Context key the authenticated principal is stored under.
 */
const PrincipalContextKey = "authenticatedPrincipal"

/**
* Cookie that may carry the token as an alternative to the Authorization
* header.
 */
const TokenCookieName = "token"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

/**
* The part of the consent store the gate consults for its decision.
 */
type ConsentRepository interface {
	GetConsent(userId string, clientId string) (consent model.Consent, httpErr model.HttpError)
	AuditAccess(userId string, consentId string)
}

/**
* Tombstones of revoked consents.
 */
type RevocationList interface {
	IsRevoked(userId string, clientId string) bool
}

/**
* Per-request authentication decision point. Turns a raw bearer token into an
* authenticated principal or leaves the request unauthenticated, it never
* aborts the chain itself. Routes that need an authenticated caller combine
* it with RequireAuthentication.
*
* Dashboard tokens are decided on structural validity alone. For consent
* tokens the effective expiry is recomputed on every request from the current
* consent record, so a consent update retroactively changes the lifetime of
* every outstanding token for that client.
 */
type AuthenticationGate struct {
	tokenValidator *token.TokenValidator
	consentRepo    ConsentRepository
	revocationList RevocationList
	Clock          Clock
}

func NewAuthenticationGate(tokenValidator *token.TokenValidator, consentRepo ConsentRepository, revocationList RevocationList) *AuthenticationGate {
	authenticationGate := new(AuthenticationGate)
	authenticationGate.tokenValidator = tokenValidator
	authenticationGate.consentRepo = consentRepo
	authenticationGate.revocationList = revocationList
	authenticationGate.Clock = RealClock{}
	return authenticationGate
}

/**
* The effective expiry of a consent token, derived from the live consent
* record. Always computed fresh, never cached per token.
 */
func EffectiveExpiry(issuedAt time.Time, policy model.ValidityPolicy) time.Time {
	return issuedAt.Add(policy.Duration())
}

func (ag *AuthenticationGate) GinHandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		ag.decide(c)
		c.Next()
	}
}

func (ag *AuthenticationGate) decide(c *gin.Context) {

	rawToken := extractRawToken(c)
	if rawToken == "" {
		return
	}

	claims, httpErr := ag.tokenValidator.ParseAndVerify(rawToken)
	if httpErr != (model.HttpError{}) {
		// covers bad signatures, malformed tokens and structural expiry, the
		// reason is not surfaced to the caller
		logger.Debugf("Token was rejected by the validator: %s", httpErr.Message)
		return
	}
	if claims.IssuedAt == nil {
		logger.Debug("Token without an iat claim was rejected.")
		return
	}

	if !claims.IsConsentToken() {
		ag.authenticate(c, claims)
		return
	}

	if ag.revocationList.IsRevoked(claims.UserId, claims.ClientId) {
		logger.Infof("Rejected a token of client %s for user %s, the consent was revoked.", claims.ClientId, claims.UserId)
		return
	}

	consentRecord, httpErr := ag.consentRepo.GetConsent(claims.UserId, claims.ClientId)
	if httpErr.Status == http.StatusNotFound {
		// first contact, the consent will be created by the first
		// attribute-sharing call
		logger.Debugf("No consent for client %s of user %s yet, authenticate as first contact.", claims.ClientId, claims.UserId)
		ag.authenticate(c, claims)
		return
	}
	if httpErr != (model.HttpError{}) {
		logger.Warnf("Was not able to look up the consent for client %s of user %s. Err: %v", claims.ClientId, claims.UserId, httpErr.Message)
		return
	}

	effectiveExpiry := EffectiveExpiry(claims.IssuedAt.Time, consentRecord.TokenValidity)
	if !ag.Clock.Now().Before(effectiveExpiry) {
		// expired by the current policy, not by the exp claim
		logger.Debugf("Token of client %s for user %s expired by policy %s at %v.", claims.ClientId, claims.UserId, consentRecord.TokenValidity, effectiveExpiry)
		return
	}

	ag.authenticate(c, claims)
	ag.consentRepo.AuditAccess(claims.UserId, consentRecord.Id)
}

func (ag *AuthenticationGate) authenticate(c *gin.Context, claims *model.IdentityClaims) {
	c.Set(PrincipalContextKey, model.Principal{
		UserId:   claims.UserId,
		Username: claims.Subject,
		Roles:    claims.RoleList(),
		ClientId: claims.ClientId,
	})
}

/**
* Middleware for routes that need an authenticated caller. Responds with a
* uniform 401, no information about why the authentication failed is leaked.
 */
func RequireAuthentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(PrincipalContextKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ProblemDetails{Type: "Unauthorized", Status: http.StatusUnauthorized, Title: "Authentication required."})
			return
		}
		c.Next()
	}
}

/**
* The principal the gate attached to the request, if it authenticated one.
 */
func Principal(c *gin.Context) (principal model.Principal, ok bool) {
	value, exists := c.Get(PrincipalContextKey)
	if !exists {
		return principal, false
	}
	principal, ok = value.(model.Principal)
	return principal, ok
}

func extractRawToken(c *gin.Context) string {
	authorizationHeader := c.GetHeader("Authorization")
	if authorizationHeader != "" {
		return getTokenFromBearer(authorizationHeader)
	}
	cookieToken, err := c.Cookie(TokenCookieName)
	if err != nil {
		return ""
	}
	return cookieToken
}

/**
* Removes the bearer prefix and returns the token
 */
func getTokenFromBearer(bearer string) (token string) {
	token = strings.ReplaceAll(bearer, "Bearer ", "")
	token = strings.ReplaceAll(token, "bearer ", "")
	return
}
