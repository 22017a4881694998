package user

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/fiware/idm-consent/model"
	"github.com/fiware/idm-consent/token"
	"github.com/gin-gonic/gin"
)

type LoginController struct {
	userRepo    UserRepository
	tokenIssuer *token.TokenIssuer
}

func NewLoginController(userRepo UserRepository, tokenIssuer *token.TokenIssuer) *LoginController {
	loginController := new(LoginController)
	loginController.userRepo = userRepo
	loginController.tokenIssuer = tokenIssuer
	return loginController
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// set for consent-scoped logins of a client application
	ClientId string `json:"clientId,omitempty"`
}

type loginResponse struct {
	UserId   string `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

/**
* Without a client id the login opens a dashboard session with a fixed token
* lifetime. With a client id a consent token bound to that client is handed
* out, its effective lifetime follows the consent record for the pair.
 */
func (lc *LoginController) Login(c *gin.Context) {

	bodyData, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Unable to read body", Detail: err.Error()})
		return
	}

	var request loginRequest
	err = json.Unmarshal(bodyData, &request)
	if err != nil {
		logger.Debugf("Was not able to unmarshal request body: %s", string(bodyData))
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Unable to unmarshal body.", Detail: err.Error()})
		return
	}

	user, httpErr := lc.userRepo.CheckCredentials(request.Username, request.Password)
	if httpErr != (model.HttpError{}) {
		// uniform answer, no detail about what part of the credentials failed
		c.AbortWithStatusJSON(http.StatusUnauthorized, model.ProblemDetails{Type: "Unauthorized", Status: http.StatusUnauthorized, Title: "Invalid credentials."})
		return
	}

	var signedToken string
	if request.ClientId == "" {
		signedToken, httpErr = lc.tokenIssuer.IssueDashboardToken(user)
	} else {
		signedToken, httpErr = lc.tokenIssuer.IssueConsentToken(user, request.ClientId)
	}
	if httpErr != (model.HttpError{}) {
		logger.Warnf("Was not able to issue a token for user %s. Err: %v", user.Username, httpErr.Message)
		c.AbortWithStatusJSON(http.StatusInternalServerError, model.ProblemDetails{Type: "InternalError", Status: http.StatusInternalServerError, Title: "Was not able to issue a token."})
		return
	}

	c.AbortWithStatusJSON(http.StatusOK, loginResponse{UserId: user.Id, Username: user.Username, Token: signedToken})
}
