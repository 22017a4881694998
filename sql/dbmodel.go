package sql

import "time"

type Consent struct {
	ID            int
	UserId        string
	ClientId      string
	TokenValidity string
	CreatedAt     time.Time
	LastUpdatedAt time.Time

	SharedAttributes []SharedAttribute `ref:"id" fk:"consent" auto:"true"`
	AccessRecords    []AccessRecord    `ref:"id" fk:"consent" auto:"true"`
}

type SharedAttribute struct {
	ID          int
	AttributeId string

	// ref to the consent
	ConsentRef Consent `ref:"consent" fk:"id" auto:"true"`
	Consent    int
}

type AccessRecord struct {
	ID         int
	AccessedAt time.Time

	// ref to the consent
	ConsentRef Consent `ref:"consent" fk:"id" auto:"true"`
	Consent    int
}
