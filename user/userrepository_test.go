package user

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/fiware/idm-consent/model"
	"github.com/google/go-cmp/cmp"
)

func getUserRepo() *InMemoryUserRepo {
	counter := 0
	return NewInmemoryUserRepo(func() string {
		counter++
		return fmt.Sprintf("id-%d", counter)
	})
}

func TestCreateUser(t *testing.T) {

	t.Run("Create a user and never hand out the password hash in plain.", func(t *testing.T) {
		userRepo := getUserRepo()
		user, httpErr := userRepo.CreateUser("alice", "secret", []string{"USER"})
		if httpErr != (model.HttpError{}) {
			t.Fatalf("The user should have been created, but error was %v.", httpErr)
		}
		if user.Username != "alice" || user.Id == "" {
			t.Errorf("The user was not created as expected: %v.", user)
		}
		if user.PasswordHash == "secret" {
			t.Errorf("The password must never be stored in plain.")
		}
	})

	t.Run("Reject duplicate usernames.", func(t *testing.T) {
		userRepo := getUserRepo()
		userRepo.CreateUser("alice", "secret", []string{"USER"})
		_, httpErr := userRepo.CreateUser("alice", "other", []string{"USER"})
		if httpErr.Status != http.StatusConflict {
			t.Errorf("Duplicate usernames should be rejected with a conflict, but error was %v.", httpErr)
		}
	})

	t.Run("Reject users without a username or password.", func(t *testing.T) {
		userRepo := getUserRepo()
		if _, httpErr := userRepo.CreateUser("", "secret", nil); httpErr.Status != http.StatusBadRequest {
			t.Errorf("Users without a username should be rejected, but error was %v.", httpErr)
		}
		if _, httpErr := userRepo.CreateUser("alice", "", nil); httpErr.Status != http.StatusBadRequest {
			t.Errorf("Users without a password should be rejected, but error was %v.", httpErr)
		}
	})
}

func TestCheckCredentials(t *testing.T) {

	userRepo := getUserRepo()
	createdUser, _ := userRepo.CreateUser("alice", "secret", []string{"USER"})

	t.Run("Accept the correct credentials.", func(t *testing.T) {
		user, httpErr := userRepo.CheckCredentials("alice", "secret")
		if httpErr != (model.HttpError{}) {
			t.Fatalf("The credentials should have been accepted, but error was %v.", httpErr)
		}
		if user.Id != createdUser.Id {
			t.Errorf("Did not get the expected user back: %v.", user)
		}
	})

	t.Run("Reject a wrong password and an unknown user the same way.", func(t *testing.T) {
		_, wrongPasswordErr := userRepo.CheckCredentials("alice", "wrong")
		_, unknownUserErr := userRepo.CheckCredentials("bob", "secret")
		if wrongPasswordErr.Status != http.StatusUnauthorized || unknownUserErr.Status != http.StatusUnauthorized {
			t.Fatalf("Both cases must be unauthorized, but got %v and %v.", wrongPasswordErr, unknownUserErr)
		}
		if wrongPasswordErr.Message != unknownUserErr.Message {
			t.Errorf("The error must not reveal whether the user exists.")
		}
	})
}

func TestContexts(t *testing.T) {

	t.Run("Create and list contexts.", func(t *testing.T) {
		userRepo := getUserRepo()
		user, _ := userRepo.CreateUser("alice", "secret", []string{"USER"})

		storedContext, httpErr := userRepo.CreateContext(user.Id, model.Context{Name: "Work", Description: "Things my employer may see."})
		if httpErr != (model.HttpError{}) {
			t.Fatalf("The context should have been created, but error was %v.", httpErr)
		}
		contexts, _ := userRepo.GetContexts(user.Id)
		if len(contexts) != 1 || contexts[0].Id != storedContext.Id {
			t.Errorf("Expected exactly the created context, but got %v.", contexts)
		}
	})

	t.Run("Reject contexts without a name.", func(t *testing.T) {
		userRepo := getUserRepo()
		user, _ := userRepo.CreateUser("alice", "secret", []string{"USER"})
		if _, httpErr := userRepo.CreateContext(user.Id, model.Context{}); httpErr.Status != http.StatusBadRequest {
			t.Errorf("Contexts without a name should be rejected, but error was %v.", httpErr)
		}
	})

	t.Run("Deleting a context cleans it out of every attribute.", func(t *testing.T) {
		userRepo := getUserRepo()
		user, _ := userRepo.CreateUser("alice", "secret", []string{"USER"})
		workContext, _ := userRepo.CreateContext(user.Id, model.Context{Name: "Work"})
		privateContext, _ := userRepo.CreateContext(user.Id, model.Context{Name: "Private"})
		attribute, _ := userRepo.CreateAttribute(user.Id, model.IdentityAttribute{Name: "email", Value: "alice@example.org", Visible: true, ContextIds: []string{workContext.Id, privateContext.Id}})

		httpErr := userRepo.DeleteContext(user.Id, workContext.Id)
		if httpErr != (model.HttpError{}) {
			t.Fatalf("The context should have been deleted, but error was %v.", httpErr)
		}

		attributes, _ := userRepo.GetAttributes(user.Id)
		if len(attributes) != 1 {
			t.Fatalf("The attribute itself must survive the context deletion.")
		}
		if !cmp.Equal(attributes[0].ContextIds, []string{privateContext.Id}) {
			t.Errorf("The deleted context must not be referenced anymore, but got %v.", attributes[0].ContextIds)
		}
		if attributes[0].Id != attribute.Id {
			t.Errorf("An unexpected attribute survived: %v.", attributes[0])
		}
	})

	t.Run("Return a not found for unknown contexts.", func(t *testing.T) {
		userRepo := getUserRepo()
		user, _ := userRepo.CreateUser("alice", "secret", []string{"USER"})
		if httpErr := userRepo.DeleteContext(user.Id, "no-such-context"); httpErr.Status != http.StatusNotFound {
			t.Errorf("Deleting an unknown context should return a not found, but error was %v.", httpErr)
		}
	})
}

func TestAttributes(t *testing.T) {

	t.Run("Create, update and delete an attribute.", func(t *testing.T) {
		userRepo := getUserRepo()
		user, _ := userRepo.CreateUser("alice", "secret", []string{"USER"})

		attribute, httpErr := userRepo.CreateAttribute(user.Id, model.IdentityAttribute{Name: "email", Value: "alice@example.org", Visible: true})
		if httpErr != (model.HttpError{}) {
			t.Fatalf("The attribute should have been created, but error was %v.", httpErr)
		}

		attribute.Value = "alice@example.com"
		updatedAttribute, httpErr := userRepo.UpdateAttribute(user.Id, attribute)
		if httpErr != (model.HttpError{}) {
			t.Fatalf("The attribute should have been updated, but error was %v.", httpErr)
		}
		if updatedAttribute.Value != "alice@example.com" {
			t.Errorf("The value should have been updated, but was %s.", updatedAttribute.Value)
		}

		if httpErr := userRepo.DeleteAttribute(user.Id, attribute.Id); httpErr != (model.HttpError{}) {
			t.Fatalf("The attribute should have been deleted, but error was %v.", httpErr)
		}
		attributes, _ := userRepo.GetAttributes(user.Id)
		if len(attributes) != 0 {
			t.Errorf("No attribute should be left, but got %v.", attributes)
		}
	})

	t.Run("Return a not found when updating an unknown attribute.", func(t *testing.T) {
		userRepo := getUserRepo()
		user, _ := userRepo.CreateUser("alice", "secret", []string{"USER"})
		if _, httpErr := userRepo.UpdateAttribute(user.Id, model.IdentityAttribute{Id: "no-such-attribute", Name: "email"}); httpErr.Status != http.StatusNotFound {
			t.Errorf("Updating an unknown attribute should return a not found, but error was %v.", httpErr)
		}
	})
}

func TestGetShareableAttributes(t *testing.T) {

	userRepo := getUserRepo()
	user, _ := userRepo.CreateUser("alice", "secret", []string{"USER"})
	workContext, _ := userRepo.CreateContext(user.Id, model.Context{Name: "Work"})
	visibleInWork, _ := userRepo.CreateAttribute(user.Id, model.IdentityAttribute{Name: "email", Value: "alice@example.org", Visible: true, ContextIds: []string{workContext.Id}})
	visibleEverywhere, _ := userRepo.CreateAttribute(user.Id, model.IdentityAttribute{Name: "nickname", Value: "al", Visible: true})
	userRepo.CreateAttribute(user.Id, model.IdentityAttribute{Name: "birthdate", Value: "1990-01-01", Visible: false, ContextIds: []string{workContext.Id}})

	t.Run("Offer only visible attributes.", func(t *testing.T) {
		attributes, httpErr := userRepo.GetShareableAttributes(user.Id, "")
		if httpErr != (model.HttpError{}) {
			t.Fatalf("The attributes should have been listed, but error was %v.", httpErr)
		}
		if len(attributes) != 2 {
			t.Errorf("Only the visible attributes should be offered, but got %v.", attributes)
		}
	})

	t.Run("Filter by context membership.", func(t *testing.T) {
		attributes, _ := userRepo.GetShareableAttributes(user.Id, workContext.Id)
		if len(attributes) != 1 || attributes[0].Id != visibleInWork.Id {
			t.Errorf("Only the visible work attribute should be offered, but got %v.", attributes)
		}
		if attributes[0].Id == visibleEverywhere.Id {
			t.Errorf("Attributes outside the context must not be offered.")
		}
	})

	t.Run("Return a not found for unknown users.", func(t *testing.T) {
		if _, httpErr := userRepo.GetShareableAttributes("no-such-user", ""); httpErr.Status != http.StatusNotFound {
			t.Errorf("Unknown users should return a not found, but error was %v.", httpErr)
		}
	})
}
