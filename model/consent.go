package model

import "time"

const (
	OneHour  ValidityPolicy = "ONE_HOUR"
	OneDay   ValidityPolicy = "ONE_DAY"
	OneMonth ValidityPolicy = "ONE_MONTH"
)

/**
* Enumerated token lifetime chosen by the user when granting a consent.
 */
type ValidityPolicy string

func (vp ValidityPolicy) Duration() time.Duration {
	switch vp {
	case OneHour:
		return time.Hour
	case OneDay:
		return 24 * time.Hour
	case OneMonth:
		return 30 * 24 * time.Hour
	}
	return 0
}

func (vp ValidityPolicy) IsValid() bool {
	return vp == OneHour || vp == OneDay || vp == OneMonth
}

/**
* Per-(user, client) grant. The id is the client id of the requesting
* application, there is at most one consent per (user, client) pair. The
* token validity is read live on every request, changing it retroactively
* changes the effective lifetime of already issued tokens for that client.
 */
type Consent struct {
	Id               string         `json:"id"`
	SharedAttributes []string       `json:"sharedAttributes"`
	TokenValidity    ValidityPolicy `json:"tokenValidity"`
	CreatedAt        time.Time      `json:"createdAt"`
	LastUpdatedAt    time.Time      `json:"lastUpdatedAt"`
	AccessedAt       []time.Time    `json:"accessedAt,omitempty"`
}
