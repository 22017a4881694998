package user

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/fiware/idm-consent/gate"
	"github.com/fiware/idm-consent/model"
	"github.com/gin-gonic/gin"
)

type UserController struct {
	userRepo UserRepository
}

func NewUserController(userRepo UserRepository) *UserController {
	userController := new(UserController)
	userController.userRepo = userRepo
	return userController
}

type registrationRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (uc *UserController) RegisterUser(c *gin.Context) {
	bodyData, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Unable to read body", Detail: err.Error()})
		return
	}
	var request registrationRequest
	err = json.Unmarshal(bodyData, &request)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Unable to unmarshal body.", Detail: err.Error()})
		return
	}
	user, httpErr := uc.userRepo.CreateUser(request.Username, request.Password, []string{"USER"})
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "RepositoryError", Status: httpErr.Status, Title: "Failed to create user.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusCreated, user)
}

func (uc *UserController) CreateContext(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	var context model.Context
	if !readBody(c, &context) {
		return
	}
	storedContext, httpErr := uc.userRepo.CreateContext(principal.UserId, context)
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "RepositoryError", Status: httpErr.Status, Title: "Failed to create context.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusCreated, storedContext)
}

func (uc *UserController) GetContexts(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	contexts, httpErr := uc.userRepo.GetContexts(principal.UserId)
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "RepositoryError", Status: httpErr.Status, Title: "Failed to read contexts.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, contexts)
}

func (uc *UserController) DeleteContext(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	httpErr := uc.userRepo.DeleteContext(principal.UserId, c.Param("id"))
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "NotFound", Status: httpErr.Status, Title: "Context not found.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func (uc *UserController) CreateAttribute(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	var attribute model.IdentityAttribute
	if !readBody(c, &attribute) {
		return
	}
	storedAttribute, httpErr := uc.userRepo.CreateAttribute(principal.UserId, attribute)
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "RepositoryError", Status: httpErr.Status, Title: "Failed to create attribute.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusCreated, storedAttribute)
}

func (uc *UserController) UpdateAttribute(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	var attribute model.IdentityAttribute
	if !readBody(c, &attribute) {
		return
	}
	if attribute.Id != c.Param("id") {
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Id cannot be updated."})
		return
	}
	storedAttribute, httpErr := uc.userRepo.UpdateAttribute(principal.UserId, attribute)
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "RepositoryError", Status: httpErr.Status, Title: "Failed to update attribute.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, storedAttribute)
}

func (uc *UserController) GetAttributes(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	attributes, httpErr := uc.userRepo.GetAttributes(principal.UserId)
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "RepositoryError", Status: httpErr.Status, Title: "Failed to read attributes.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, attributes)
}

/**
* The attributes the selection ui offers for sharing, filtered to visible
* ones and optionally to a single context.
 */
func (uc *UserController) GetShareableAttributes(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	attributes, httpErr := uc.userRepo.GetShareableAttributes(principal.UserId, c.Query("contextId"))
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "RepositoryError", Status: httpErr.Status, Title: "Failed to read attributes.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, attributes)
}

func (uc *UserController) DeleteAttribute(c *gin.Context) {
	principal, ok := gate.Principal(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	httpErr := uc.userRepo.DeleteAttribute(principal.UserId, c.Param("id"))
	if httpErr != (model.HttpError{}) {
		c.AbortWithStatusJSON(httpErr.Status, model.ProblemDetails{Type: "NotFound", Status: httpErr.Status, Title: "Attribute not found.", Detail: httpErr.Message})
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ProblemDetails{Type: "Unauthorized", Status: http.StatusUnauthorized, Title: "Authentication required."})
}

func readBody(c *gin.Context, target interface{}) bool {
	bodyData, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Unable to read body", Detail: err.Error()})
		return false
	}
	if err := json.Unmarshal(bodyData, target); err != nil {
		logger.Debugf("Was not able to unmarshal request body: %s", string(bodyData))
		c.AbortWithStatusJSON(http.StatusBadRequest, model.ProblemDetails{Type: "BadRequest", Status: http.StatusBadRequest, Title: "Unable to unmarshal body.", Detail: err.Error()})
		return false
	}
	return true
}
