package consent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/fiware/idm-consent/logging"
	"github.com/fiware/idm-consent/model"
	dbModel "github.com/fiware/idm-consent/sql"
	"github.com/go-rel/mysql"
	"github.com/go-rel/rel"
	"github.com/go-rel/rel/where"
	_ "github.com/go-sql-driver/mysql"
)

type SqlRepo struct {
	repo  *rel.Repository
	clock Clock
}

func GetMySqlRepository() rel.Repository {
	var err error

	mysqlHost := os.Getenv("MYSQL_HOST")
	if mysqlHost == "" {
		logger.Fatalf("No mysql host configured, mysql repo not available.")
	}
	var mySqlPort int
	mysqlPortEnv := os.Getenv("MYSQL_PORT")
	if mysqlPortEnv != "" {
		mySqlPort, err = strconv.Atoi(mysqlPortEnv)
		if err != nil {
			logger.Fatalf("Invalid mysql port configured: %s", mysqlPortEnv)
		}
	} else {
		mySqlPort = 3306
	}
	mysqlDb := os.Getenv("MYSQL_DATABASE")
	if mysqlDb == "" {
		logger.Fatal("No mysql db configured, mysql repo not available.")
	}
	authEnabled := true

	mysqlUser := os.Getenv("MYSQL_USERNAME")
	mysqlPassword := os.Getenv("MYSQL_PASSWORD")

	if mysqlUser == "" {
		logger.Infof("No user configured for mySql, will try to connect as root.")
		mysqlUser = "root"
	}

	if mysqlPassword == "" {
		logger.Infof("No password configured for mySql, will try to connect without credentials.")
		authEnabled = false
	}

	var connectionString string
	if authEnabled {
		connectionString = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", mysqlUser, mysqlPassword, mysqlHost, mySqlPort, mysqlDb)
	} else {
		connectionString = fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", mysqlUser, mysqlHost, mySqlPort, mysqlDb)
	}

	adapter, err := mysql.Open(connectionString)
	if err != nil {
		logger.Fatalf("Was not able to connect to db: %s:%d/%s as user %s. Err: %v", mysqlHost, mySqlPort, mysqlDb, mysqlUser, err)
	}
	return rel.New(adapter)
}

func NewSqlRepository(repository rel.Repository) *SqlRepo {
	sqlRepo := new(SqlRepo)
	sqlRepo.repo = &repository
	sqlRepo.clock = RealClock{}
	return sqlRepo
}

func (sqlRepo SqlRepo) GetConsent(userId string, clientId string) (consent model.Consent, httpErr model.HttpError) {
	sqlConsent, httpErr := sqlRepo.getSqlConsent(userId, clientId)
	if httpErr != (model.HttpError{}) {
		return consent, httpErr
	}
	return fromSqlConsent(sqlConsent), httpErr
}

func (sqlRepo SqlRepo) GetConsents(userId string) (consents []model.Consent, httpErr model.HttpError) {
	var sqlConsents []dbModel.Consent
	err := (*sqlRepo.repo).FindAll(context.TODO(), &sqlConsents, where.Eq("user_id", userId))
	if err != nil {
		return consents, model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to query for consents.", RootError: err}
	}
	consents = []model.Consent{}
	for _, sqlConsent := range sqlConsents {
		loadedConsent, httpErr := sqlRepo.getSqlConsent(userId, sqlConsent.ClientId)
		if httpErr != (model.HttpError{}) {
			return consents, httpErr
		}
		consents = append(consents, fromSqlConsent(loadedConsent))
	}
	return consents, httpErr
}

func (sqlRepo SqlRepo) getSqlConsent(userId string, clientId string) (sqlConsent dbModel.Consent, httpErr model.HttpError) {
	ctx := context.TODO()

	err := (*sqlRepo.repo).Find(ctx, &sqlConsent, where.Eq("user_id", userId).AndEq("client_id", clientId))
	if errors.Is(err, rel.NotFoundError{}) {
		return sqlConsent, model.HttpError{Status: http.StatusNotFound, Message: fmt.Sprintf("Consent %s not found.", clientId), RootError: nil}
	}
	if err != nil {
		// a store failure must never look like an absent consent, the gate
		// would treat that as first contact
		return sqlConsent, model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to load the consent.", RootError: err}
	}

	sharedAttributes := []dbModel.SharedAttribute{}
	err = (*sqlRepo.repo).FindAll(ctx, &sharedAttributes, where.Eq("consent", sqlConsent.ID))
	if err != nil {
		return sqlConsent, model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to load the shared attributes.", RootError: err}
	}
	sqlConsent.SharedAttributes = sharedAttributes

	accessRecords := []dbModel.AccessRecord{}
	err = (*sqlRepo.repo).FindAll(ctx, &accessRecords, where.Eq("consent", sqlConsent.ID))
	if err != nil {
		return sqlConsent, model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to load the access records.", RootError: err}
	}
	sqlConsent.AccessRecords = accessRecords
	return sqlConsent, httpErr
}

func (sqlRepo SqlRepo) UpsertConsent(userId string, consent model.Consent) (storedConsent model.Consent, httpErr model.HttpError) {
	if consent.Id == "" {
		logger.Infof("Failed to store consent %s because of a missing client id.", logging.PrettyPrintObject(consent))
		return storedConsent, model.HttpError{Status: http.StatusBadRequest, Message: "Consents need a client id.", RootError: nil}
	}

	ctx := context.TODO()
	now := sqlRepo.clock.Now()

	var sqlConsent dbModel.Consent
	err := (*sqlRepo.repo).Find(ctx, &sqlConsent, where.Eq("user_id", userId).AndEq("client_id", consent.Id))
	if err != nil && !errors.Is(err, rel.NotFoundError{}) {
		return storedConsent, model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to look up the consent.", RootError: err}
	}
	if err != nil {
		// first confirmation for this (user, client) pair
		sqlConsent = dbModel.Consent{UserId: userId, ClientId: consent.Id, TokenValidity: string(consent.TokenValidity), CreatedAt: now, LastUpdatedAt: now}
		err = (*sqlRepo.repo).Transaction(ctx, func(ctx context.Context) error {
			if err := (*sqlRepo.repo).Insert(ctx, &sqlConsent); err != nil {
				return err
			}
			return sqlRepo.insertSharedAttributes(ctx, sqlConsent.ID, consent.SharedAttributes)
		})
		if err != nil {
			return storedConsent, model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to store consent.", RootError: err}
		}
		return sqlRepo.GetConsent(userId, consent.Id)
	}

	// repeated confirmation, replace attributes and policy, keep createdAt and
	// the access history
	sqlConsent.TokenValidity = string(consent.TokenValidity)
	sqlConsent.LastUpdatedAt = now
	err = (*sqlRepo.repo).Transaction(ctx, func(ctx context.Context) error {
		if err := (*sqlRepo.repo).Update(ctx, &sqlConsent); err != nil {
			return err
		}
		oldAttributes := []dbModel.SharedAttribute{}
		if err := (*sqlRepo.repo).FindAll(ctx, &oldAttributes, where.Eq("consent", sqlConsent.ID)); err != nil {
			return err
		}
		for _, oldAttribute := range oldAttributes {
			if err := (*sqlRepo.repo).Delete(ctx, &oldAttribute); err != nil {
				return err
			}
		}
		return sqlRepo.insertSharedAttributes(ctx, sqlConsent.ID, consent.SharedAttributes)
	})
	if err != nil {
		return storedConsent, model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to update consent.", RootError: err}
	}
	return sqlRepo.GetConsent(userId, consent.Id)
}

func (sqlRepo SqlRepo) insertSharedAttributes(ctx context.Context, consentId int, attributeIds []string) error {
	for _, attributeId := range attributeIds {
		sharedAttribute := dbModel.SharedAttribute{AttributeId: attributeId, Consent: consentId}
		if err := (*sqlRepo.repo).Insert(ctx, &sharedAttribute); err != nil {
			logger.Debugf("Was not able to insert the shared attribute %s. Error was: %v", attributeId, err)
			return err
		}
	}
	return nil
}

func (sqlRepo SqlRepo) DeleteConsent(userId string, consentId string) (httpErr model.HttpError) {
	sqlConsent, httpErr := sqlRepo.getSqlConsent(userId, consentId)
	if httpErr != (model.HttpError{}) {
		logger.Debugf("Consent %s to delete not found for user %s.", consentId, userId)
		return httpErr
	}

	ctx := context.TODO()
	err := (*sqlRepo.repo).Transaction(ctx, func(ctx context.Context) error {
		for _, sharedAttribute := range sqlConsent.SharedAttributes {
			if err := (*sqlRepo.repo).Delete(ctx, &sharedAttribute); err != nil {
				logger.Infof("Was not able to delete shared attribute %d", sharedAttribute.ID)
				return err
			}
		}
		for _, accessRecord := range sqlConsent.AccessRecords {
			if err := (*sqlRepo.repo).Delete(ctx, &accessRecord); err != nil {
				logger.Infof("Was not able to delete access record %d", accessRecord.ID)
				return err
			}
		}
		return (*sqlRepo.repo).Delete(ctx, &sqlConsent)
	})
	if err != nil {
		return model.HttpError{Status: http.StatusInternalServerError, Message: fmt.Sprintf("Was not able to delete consent %s", consentId), RootError: err}
	}
	return httpErr
}

func (sqlRepo SqlRepo) RemoveAttribute(userId string, consentId string, attributeId string) (httpErr model.HttpError) {
	sqlConsent, httpErr := sqlRepo.getSqlConsent(userId, consentId)
	if httpErr != (model.HttpError{}) {
		return httpErr
	}

	ctx := context.TODO()
	var sharedAttribute dbModel.SharedAttribute
	err := (*sqlRepo.repo).Find(ctx, &sharedAttribute, where.Eq("consent", sqlConsent.ID).AndEq("attribute_id", attributeId))
	if err != nil {
		return model.HttpError{Status: http.StatusNotFound, Message: "Attribute is not part of the consent.", RootError: nil}
	}
	err = (*sqlRepo.repo).Delete(ctx, &sharedAttribute)
	if err != nil {
		return model.HttpError{Status: http.StatusInternalServerError, Message: "Was not able to remove the attribute.", RootError: err}
	}
	return httpErr
}

func (sqlRepo SqlRepo) AuditAccess(userId string, consentId string) {
	ctx := context.TODO()

	var sqlConsent dbModel.Consent
	err := (*sqlRepo.repo).Find(ctx, &sqlConsent, where.Eq("user_id", userId).AndEq("client_id", consentId))
	if err != nil {
		// auditing must never block the request path
		logger.Debugf("No consent %s to audit for user %s.", consentId, userId)
		return
	}
	accessRecord := dbModel.AccessRecord{AccessedAt: sqlRepo.clock.Now(), Consent: sqlConsent.ID}
	if err := (*sqlRepo.repo).Insert(ctx, &accessRecord); err != nil {
		logger.Warnf("Was not able to record the access for consent %s of user %s. Err: %v", consentId, userId, err)
	}
}

func (sqlRepo SqlRepo) TrimAccessHistory(limit int) {
	if limit <= 0 {
		return
	}
	ctx := context.TODO()

	var sqlConsents []dbModel.Consent
	if err := (*sqlRepo.repo).FindAll(ctx, &sqlConsents); err != nil {
		logger.Warnf("Was not able to load the consents for history trimming. Err: %v", err)
		return
	}
	for _, sqlConsent := range sqlConsents {
		accessRecords := []dbModel.AccessRecord{}
		if err := (*sqlRepo.repo).FindAll(ctx, &accessRecords, where.Eq("consent", sqlConsent.ID), rel.NewSortAsc("id")); err != nil {
			logger.Warnf("Was not able to load the access records of consent %d. Err: %v", sqlConsent.ID, err)
			continue
		}
		if len(accessRecords) <= limit {
			continue
		}
		for _, accessRecord := range accessRecords[:len(accessRecords)-limit] {
			if err := (*sqlRepo.repo).Delete(ctx, &accessRecord); err != nil {
				logger.Warnf("Was not able to delete access record %d. Err: %v", accessRecord.ID, err)
			}
		}
	}
}

func fromSqlConsent(sqlConsent dbModel.Consent) model.Consent {
	consent := model.Consent{
		Id:            sqlConsent.ClientId,
		TokenValidity: model.ValidityPolicy(sqlConsent.TokenValidity),
		CreatedAt:     sqlConsent.CreatedAt,
		LastUpdatedAt: sqlConsent.LastUpdatedAt,
	}
	sharedAttributes := []string{}
	for _, sharedAttribute := range sqlConsent.SharedAttributes {
		sharedAttributes = append(sharedAttributes, sharedAttribute.AttributeId)
	}
	consent.SharedAttributes = sharedAttributes

	accessedAt := []time.Time{}
	for _, accessRecord := range sqlConsent.AccessRecords {
		accessedAt = append(accessedAt, accessRecord.AccessedAt)
	}
	consent.AccessedAt = accessedAt
	return consent
}
