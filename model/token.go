package model

import (
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

/**
* Claims carried by the tokens issued by this service. A dashboard token has
* no client id, its lifetime is the standard exp claim. A consent token
* carries the client id of the requesting application, its effective lifetime
* is decided by the authentication gate from the live consent record, the exp
* claim only serves as an upper bound.
 */
type IdentityClaims struct {
	UserId   string `json:"userId"`
	Roles    string `json:"roles,omitempty"`
	ClientId string `json:"clientId,omitempty"`
	jwt.RegisteredClaims
}

func (ic *IdentityClaims) IsConsentToken() bool {
	return ic.ClientId != ""
}

func (ic *IdentityClaims) RoleList() []string {
	roles := []string{}
	for _, role := range strings.Split(ic.Roles, ",") {
		if role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
