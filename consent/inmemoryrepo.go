package consent

import (
	"net/http"
	"sync"
	"time"

	"github.com/fiware/idm-consent/model"
)

/**
* Quick in-memory implementation of the consent repository. Should only be used for dev and testing, does not have any persistence.
 */
type InMemoryRepo struct {
	// userId -> clientId -> consent
	consentMap map[string]map[string]model.Consent
	mutex      sync.RWMutex
	clock      Clock
}

func NewInmemoryRepo() *InMemoryRepo {
	inMemoryRepo := new(InMemoryRepo)
	inMemoryRepo.consentMap = map[string]map[string]model.Consent{}
	inMemoryRepo.clock = RealClock{}
	return inMemoryRepo
}

func (imr *InMemoryRepo) GetConsent(userId string, clientId string) (consent model.Consent, httpErr model.HttpError) {
	imr.mutex.RLock()
	defer imr.mutex.RUnlock()

	consent, ok := imr.consentMap[userId][clientId]
	if !ok {
		return consent, model.HttpError{Status: http.StatusNotFound, Message: "Consent not found.", RootError: nil}
	}
	return copyConsent(consent), httpErr
}

func (imr *InMemoryRepo) GetConsents(userId string) (consents []model.Consent, httpErr model.HttpError) {
	imr.mutex.RLock()
	defer imr.mutex.RUnlock()

	consents = []model.Consent{}
	for _, consent := range imr.consentMap[userId] {
		consents = append(consents, copyConsent(consent))
	}
	return consents, httpErr
}

func (imr *InMemoryRepo) UpsertConsent(userId string, consent model.Consent) (storedConsent model.Consent, httpErr model.HttpError) {
	if consent.Id == "" {
		logger.Warnf("Consents need a client id.")
		return storedConsent, model.HttpError{Status: http.StatusBadRequest, Message: "Consents need a client id.", RootError: nil}
	}

	imr.mutex.Lock()
	defer imr.mutex.Unlock()

	now := imr.clock.Now()
	if _, ok := imr.consentMap[userId]; !ok {
		imr.consentMap[userId] = map[string]model.Consent{}
	}

	existingConsent, exists := imr.consentMap[userId][consent.Id]
	if exists {
		existingConsent.SharedAttributes = consent.SharedAttributes
		existingConsent.TokenValidity = consent.TokenValidity
		existingConsent.LastUpdatedAt = now
		imr.consentMap[userId][consent.Id] = existingConsent
		return copyConsent(existingConsent), httpErr
	}

	consent.CreatedAt = now
	consent.LastUpdatedAt = now
	consent.AccessedAt = nil
	imr.consentMap[userId][consent.Id] = consent
	return copyConsent(consent), httpErr
}

func (imr *InMemoryRepo) DeleteConsent(userId string, consentId string) (httpErr model.HttpError) {
	imr.mutex.Lock()
	defer imr.mutex.Unlock()

	if _, ok := imr.consentMap[userId][consentId]; !ok {
		logger.Debugf("No consent %s exists for user %s.", consentId, userId)
		return model.HttpError{Status: http.StatusNotFound, Message: "Consent not found.", RootError: nil}
	}
	delete(imr.consentMap[userId], consentId)
	return httpErr
}

func (imr *InMemoryRepo) RemoveAttribute(userId string, consentId string, attributeId string) (httpErr model.HttpError) {
	imr.mutex.Lock()
	defer imr.mutex.Unlock()

	consent, ok := imr.consentMap[userId][consentId]
	if !ok {
		return model.HttpError{Status: http.StatusNotFound, Message: "Consent not found.", RootError: nil}
	}

	remainingAttributes := []string{}
	found := false
	for _, sharedAttribute := range consent.SharedAttributes {
		if sharedAttribute == attributeId {
			found = true
			continue
		}
		remainingAttributes = append(remainingAttributes, sharedAttribute)
	}
	if !found {
		return model.HttpError{Status: http.StatusNotFound, Message: "Attribute is not part of the consent.", RootError: nil}
	}
	consent.SharedAttributes = remainingAttributes
	imr.consentMap[userId][consentId] = consent
	return httpErr
}

func (imr *InMemoryRepo) AuditAccess(userId string, consentId string) {
	imr.mutex.Lock()
	defer imr.mutex.Unlock()

	consent, ok := imr.consentMap[userId][consentId]
	if !ok {
		// auditing must never block the request path
		logger.Debugf("No consent %s to audit for user %s.", consentId, userId)
		return
	}
	consent.AccessedAt = append(consent.AccessedAt, imr.clock.Now())
	imr.consentMap[userId][consentId] = consent
}

func (imr *InMemoryRepo) TrimAccessHistory(limit int) {
	if limit <= 0 {
		return
	}
	imr.mutex.Lock()
	defer imr.mutex.Unlock()

	for userId, consents := range imr.consentMap {
		for clientId, consent := range consents {
			if len(consent.AccessedAt) > limit {
				consent.AccessedAt = append([]time.Time{}, consent.AccessedAt[len(consent.AccessedAt)-limit:]...)
				imr.consentMap[userId][clientId] = consent
			}
		}
	}
}

/**
* Copies the record before handing it out, the maps content should never be
* mutated by a caller.
 */
func copyConsent(consent model.Consent) model.Consent {
	copiedConsent := consent
	copiedConsent.SharedAttributes = append([]string{}, consent.SharedAttributes...)
	copiedConsent.AccessedAt = append([]time.Time{}, consent.AccessedAt...)
	return copiedConsent
}
