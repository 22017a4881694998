package consent

import (
	"time"

	"github.com/fiware/idm-consent/logging"
	"github.com/fiware/idm-consent/model"
)

var logger = logging.Log()

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

/**
* Repository holding the consent records per user. A consent is keyed by the
* client id of the requesting application, there is at most one record per
* (user, client) pair and every record is replaced atomically.
 */
type ConsentRepository interface {
	GetConsent(userId string, clientId string) (consent model.Consent, httpErr model.HttpError)
	GetConsents(userId string) (consents []model.Consent, httpErr model.HttpError)
	// creates the consent on first contact, replaces attributes and policy on
	// repetition. CreatedAt and the access history survive updates.
	UpsertConsent(userId string, consent model.Consent) (storedConsent model.Consent, httpErr model.HttpError)
	DeleteConsent(userId string, consentId string) model.HttpError
	RemoveAttribute(userId string, consentId string, attributeId string) model.HttpError
	// appends an access timestamp to the record. Best effort, a missing
	// record or a failing write must never block the request path.
	AuditAccess(userId string, consentId string)
	// caps the access history of every record to the given number of entries,
	// dropping the oldest ones. Called from the scheduled trim job.
	TrimAccessHistory(limit int)
}
