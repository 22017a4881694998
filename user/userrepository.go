package user

import (
	"net/http"
	"sync"

	"github.com/fiware/idm-consent/logging"
	"github.com/fiware/idm-consent/model"
	"golang.org/x/crypto/bcrypt"
)

var logger = logging.Log()

/**
* Repository holding the users together with their contexts and identity
* attributes. Usernames are unique across the system.
 */
type UserRepository interface {
	CreateUser(username string, password string, roles []string) (user model.User, httpErr model.HttpError)
	GetUser(id string) (user model.User, httpErr model.HttpError)
	CheckCredentials(username string, password string) (user model.User, httpErr model.HttpError)

	CreateContext(userId string, context model.Context) (storedContext model.Context, httpErr model.HttpError)
	GetContexts(userId string) (contexts []model.Context, httpErr model.HttpError)
	// removes the context and cleans its id out of every attribute's
	// membership list, no orphan references are left behind
	DeleteContext(userId string, contextId string) model.HttpError

	CreateAttribute(userId string, attribute model.IdentityAttribute) (storedAttribute model.IdentityAttribute, httpErr model.HttpError)
	UpdateAttribute(userId string, attribute model.IdentityAttribute) (storedAttribute model.IdentityAttribute, httpErr model.HttpError)
	GetAttributes(userId string) (attributes []model.IdentityAttribute, httpErr model.HttpError)
	// only visible attributes are ever offered for sharing
	GetShareableAttributes(userId string, contextId string) (attributes []model.IdentityAttribute, httpErr model.HttpError)
	DeleteAttribute(userId string, attributeId string) model.HttpError
}

/**
* Quick in-memory implementation of the user repository. Should only be used for dev and testing, does not have any persistence.
 */
type InMemoryUserRepo struct {
	userMap     map[string]model.User
	usernameMap map[string]string
	mutex       sync.RWMutex
	newId       func() string
}

func NewInmemoryUserRepo(newId func() string) *InMemoryUserRepo {
	inMemoryUserRepo := new(InMemoryUserRepo)
	inMemoryUserRepo.userMap = map[string]model.User{}
	inMemoryUserRepo.usernameMap = map[string]string{}
	inMemoryUserRepo.newId = newId
	return inMemoryUserRepo
}

func (iur *InMemoryUserRepo) CreateUser(username string, password string, roles []string) (user model.User, httpErr model.HttpError) {
	if username == "" || password == "" {
		return user, model.HttpError{Status: http.StatusBadRequest, Message: "Users need a username and a password.", RootError: nil}
	}

	iur.mutex.Lock()
	defer iur.mutex.Unlock()

	if _, exists := iur.usernameMap[username]; exists {
		logger.Debugf("Username %s is already taken.", username)
		return user, model.HttpError{Status: http.StatusConflict, Message: "Username is already taken.", RootError: nil}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user, model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to hash the password.", RootError: err}
	}

	user = model.User{
		Id:           iur.newId(),
		Username:     username,
		PasswordHash: string(passwordHash),
		Roles:        roles,
		Contexts:     []model.Context{},
		Attributes:   []model.IdentityAttribute{},
	}
	iur.userMap[user.Id] = user
	iur.usernameMap[username] = user.Id
	return copyUser(user), httpErr
}

func (iur *InMemoryUserRepo) GetUser(id string) (user model.User, httpErr model.HttpError) {
	iur.mutex.RLock()
	defer iur.mutex.RUnlock()

	user, ok := iur.userMap[id]
	if !ok {
		return user, model.HttpError{Status: http.StatusNotFound, Message: "User not found.", RootError: nil}
	}
	return copyUser(user), httpErr
}

func (iur *InMemoryUserRepo) CheckCredentials(username string, password string) (user model.User, httpErr model.HttpError) {
	iur.mutex.RLock()
	defer iur.mutex.RUnlock()

	userId, ok := iur.usernameMap[username]
	if !ok {
		// do not reveal whether the user or only the password was wrong
		return user, model.HttpError{Status: http.StatusUnauthorized, Message: "Invalid credentials.", RootError: nil}
	}
	user = iur.userMap[userId]
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.User{}, model.HttpError{Status: http.StatusUnauthorized, Message: "Invalid credentials.", RootError: nil}
	}
	return copyUser(user), httpErr
}

func (iur *InMemoryUserRepo) CreateContext(userId string, context model.Context) (storedContext model.Context, httpErr model.HttpError) {
	if context.Name == "" {
		return storedContext, model.HttpError{Status: http.StatusBadRequest, Message: "Contexts need a name.", RootError: nil}
	}

	iur.mutex.Lock()
	defer iur.mutex.Unlock()

	user, ok := iur.userMap[userId]
	if !ok {
		return storedContext, model.HttpError{Status: http.StatusNotFound, Message: "User not found.", RootError: nil}
	}
	context.Id = iur.newId()
	user.Contexts = append(user.Contexts, context)
	iur.userMap[userId] = user
	return context, httpErr
}

func (iur *InMemoryUserRepo) GetContexts(userId string) (contexts []model.Context, httpErr model.HttpError) {
	iur.mutex.RLock()
	defer iur.mutex.RUnlock()

	user, ok := iur.userMap[userId]
	if !ok {
		return contexts, model.HttpError{Status: http.StatusNotFound, Message: "User not found.", RootError: nil}
	}
	return append([]model.Context{}, user.Contexts...), httpErr
}

func (iur *InMemoryUserRepo) DeleteContext(userId string, contextId string) (httpErr model.HttpError) {
	iur.mutex.Lock()
	defer iur.mutex.Unlock()

	user, ok := iur.userMap[userId]
	if !ok {
		return model.HttpError{Status: http.StatusNotFound, Message: "User not found.", RootError: nil}
	}

	remainingContexts := []model.Context{}
	found := false
	for _, context := range user.Contexts {
		if context.Id == contextId {
			found = true
			continue
		}
		remainingContexts = append(remainingContexts, context)
	}
	if !found {
		return model.HttpError{Status: http.StatusNotFound, Message: "Context not found.", RootError: nil}
	}
	user.Contexts = remainingContexts

	// referential cleanup, the context id must not survive in any attribute
	cleanedAttributes := []model.IdentityAttribute{}
	for _, attribute := range user.Attributes {
		remainingIds := []string{}
		for _, id := range attribute.ContextIds {
			if id != contextId {
				remainingIds = append(remainingIds, id)
			}
		}
		attribute.ContextIds = remainingIds
		cleanedAttributes = append(cleanedAttributes, attribute)
	}
	user.Attributes = cleanedAttributes

	iur.userMap[userId] = user
	return httpErr
}

func (iur *InMemoryUserRepo) CreateAttribute(userId string, attribute model.IdentityAttribute) (storedAttribute model.IdentityAttribute, httpErr model.HttpError) {
	if attribute.Name == "" {
		return storedAttribute, model.HttpError{Status: http.StatusBadRequest, Message: "Attributes need a name.", RootError: nil}
	}

	iur.mutex.Lock()
	defer iur.mutex.Unlock()

	user, ok := iur.userMap[userId]
	if !ok {
		return storedAttribute, model.HttpError{Status: http.StatusNotFound, Message: "User not found.", RootError: nil}
	}
	attribute.Id = iur.newId()
	user.Attributes = append(user.Attributes, attribute)
	iur.userMap[userId] = user
	return attribute, httpErr
}

func (iur *InMemoryUserRepo) UpdateAttribute(userId string, attribute model.IdentityAttribute) (storedAttribute model.IdentityAttribute, httpErr model.HttpError) {
	iur.mutex.Lock()
	defer iur.mutex.Unlock()

	user, ok := iur.userMap[userId]
	if !ok {
		return storedAttribute, model.HttpError{Status: http.StatusNotFound, Message: "User not found.", RootError: nil}
	}
	for i, existingAttribute := range user.Attributes {
		if existingAttribute.Id == attribute.Id {
			user.Attributes[i] = attribute
			iur.userMap[userId] = user
			return attribute, httpErr
		}
	}
	return storedAttribute, model.HttpError{Status: http.StatusNotFound, Message: "Attribute not found.", RootError: nil}
}

func (iur *InMemoryUserRepo) GetAttributes(userId string) (attributes []model.IdentityAttribute, httpErr model.HttpError) {
	iur.mutex.RLock()
	defer iur.mutex.RUnlock()

	user, ok := iur.userMap[userId]
	if !ok {
		return attributes, model.HttpError{Status: http.StatusNotFound, Message: "User not found.", RootError: nil}
	}
	return append([]model.IdentityAttribute{}, user.Attributes...), httpErr
}

func (iur *InMemoryUserRepo) GetShareableAttributes(userId string, contextId string) (attributes []model.IdentityAttribute, httpErr model.HttpError) {
	iur.mutex.RLock()
	defer iur.mutex.RUnlock()

	user, ok := iur.userMap[userId]
	if !ok {
		return attributes, model.HttpError{Status: http.StatusNotFound, Message: "User not found.", RootError: nil}
	}
	attributes = []model.IdentityAttribute{}
	for _, attribute := range user.Attributes {
		if !attribute.Visible {
			continue
		}
		if contextId != "" && !containsString(attribute.ContextIds, contextId) {
			continue
		}
		attributes = append(attributes, attribute)
	}
	return attributes, httpErr
}

func (iur *InMemoryUserRepo) DeleteAttribute(userId string, attributeId string) (httpErr model.HttpError) {
	iur.mutex.Lock()
	defer iur.mutex.Unlock()

	user, ok := iur.userMap[userId]
	if !ok {
		return model.HttpError{Status: http.StatusNotFound, Message: "User not found.", RootError: nil}
	}
	remainingAttributes := []model.IdentityAttribute{}
	found := false
	for _, attribute := range user.Attributes {
		if attribute.Id == attributeId {
			found = true
			continue
		}
		remainingAttributes = append(remainingAttributes, attribute)
	}
	if !found {
		return model.HttpError{Status: http.StatusNotFound, Message: "Attribute not found.", RootError: nil}
	}
	user.Attributes = remainingAttributes
	iur.userMap[userId] = user
	return httpErr
}

func copyUser(user model.User) model.User {
	copiedUser := user
	copiedUser.Roles = append([]string{}, user.Roles...)
	copiedUser.Contexts = append([]model.Context{}, user.Contexts...)
	copiedUser.Attributes = append([]model.IdentityAttribute{}, user.Attributes...)
	return copiedUser
}

func containsString(s []string, e string) bool {
	for _, a := range s {
		if a == e {
			return true
		}
	}
	return false
}
