package consent

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/fiware/idm-consent/gate"
	"github.com/fiware/idm-consent/logging"
	"github.com/fiware/idm-consent/model"
	"github.com/gin-gonic/gin"
)

type ConsentController struct {
	consentRepo    ConsentRepository
	revocationList *RevocationList
}

func NewConsentController(consentRepo ConsentRepository, revocationList *RevocationList) *ConsentController {
	consentController := new(ConsentController)
	consentController.consentRepo = consentRepo
	consentController.revocationList = revocationList
	return consentController
}

type consentRequest struct {
	ClientId           string               `json:"clientId"`
	SharedAttributeIds []string             `json:"sharedAttributeIds"`
	ValidityPolicy     model.ValidityPolicy `json:"validityPolicy"`
}

/**
* The only write path that creates a consent. Creates the record on the first
* confirmation for a (user, client) pair and replaces attributes and policy
* on every following one.
 */
func (cc *ConsentController) RecordConsent(c *gin.Context) {

	principal, ok := gate.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, model.ProblemDetails{Type: "Unauthorized", Status: http.StatusUnauthorized, Title: "Authentication required."})
		return
	}

	bodyData, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Debugf("Was not able to read the body, return error %v.", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Unable to read body", Detail: err.Error()})
		return
	}

	var request consentRequest
	err = json.Unmarshal(bodyData, &request)
	if err != nil {
		logger.Debugf("Was not able to unmarshal request body: %s", string(bodyData))
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Unable to unmarshal body.", Detail: err.Error()})
		return
	}

	if !request.ValidityPolicy.IsValid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Not a valid validity policy.", Detail: string(request.ValidityPolicy)})
		return
	}

	consent := model.Consent{Id: request.ClientId, SharedAttributes: request.SharedAttributeIds, TokenValidity: request.ValidityPolicy}
	storedConsent, httpErr := cc.consentRepo.UpsertConsent(principal.UserId, consent)
	if httpErr != (model.HttpError{}) {
		logger.Debugf("Was not able to store consent %s.", logging.PrettyPrintObject(consent))
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "RepositoryError", Status: httpErr.Status, Title: "Failed to store consent.", Detail: httpErr.Message})
		return
	}

	// a fresh grant supersedes an earlier revocation of the same client
	cc.revocationList.Clear(principal.UserId, request.ClientId)

	c.AbortWithStatusJSON(http.StatusOK, storedConsent)
}

func (cc *ConsentController) GetConsents(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, model.ProblemDetails{Type: "Unauthorized", Status: http.StatusUnauthorized, Title: "Authentication required."})
		return
	}
	consents, httpErr := cc.consentRepo.GetConsents(principal.UserId)
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "RepositoryError", Status: httpErr.Status, Title: "Failed to read consents.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, consents)
}

func (cc *ConsentController) GetConsentById(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, model.ProblemDetails{Type: "Unauthorized", Status: http.StatusUnauthorized, Title: "Authentication required."})
		return
	}
	consentId := c.Param("id")
	consent, httpErr := cc.consentRepo.GetConsent(principal.UserId, consentId)
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "NotFound", Status: httpErr.Status, Title: "Consent not found.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, consent)
}

/**
* Removes the whole consent and tombstones the client session, outstanding
* tokens for that client fail authentication from here on.
 */
func (cc *ConsentController) RevokeConsent(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, model.ProblemDetails{Type: "Unauthorized", Status: http.StatusUnauthorized, Title: "Authentication required."})
		return
	}
	consentId := c.Param("id")
	httpErr := cc.consentRepo.DeleteConsent(principal.UserId, consentId)
	if httpErr != (model.HttpError{}) {
		logger.Debugf("Was not able to revoke consent %s for user %s.", consentId, principal.UserId)
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "NotFound", Status: httpErr.Status, Title: "Consent not found.", Detail: httpErr.Message})
		return
	}
	cc.revocationList.Revoke(principal.UserId, consentId)
	c.AbortWithStatus(http.StatusNoContent)
}

/**
* Removes a single attribute from the shared list, validity policy and
* createdAt stay untouched.
 */
func (cc *ConsentController) RevokeAttribute(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, model.ProblemDetails{Type: "Unauthorized", Status: http.StatusUnauthorized, Title: "Authentication required."})
		return
	}
	consentId := c.Param("id")
	attributeId := c.Param("attributeId")
	httpErr := cc.consentRepo.RemoveAttribute(principal.UserId, consentId, attributeId)
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "NotFound", Status: httpErr.Status, Title: "Attribute not part of the consent.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}
