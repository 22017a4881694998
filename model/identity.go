package model

/**
* Identity root. Owns its contexts, attributes and consents, they are removed
* together with the user.
 */
type User struct {
	Id           string              `json:"id"`
	Username     string              `json:"username"`
	PasswordHash string              `json:"-"`
	Roles        []string            `json:"roles"`
	Contexts     []Context           `json:"contexts,omitempty"`
	Attributes   []IdentityAttribute `json:"attributes,omitempty"`
}

/**
* Named grouping label for attributes, f.e. "Personal" or "Work".
 */
type Context struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

/**
* A single disclosable fact about the user. Only visible attributes are ever
* offered for sharing.
 */
type IdentityAttribute struct {
	Id         string   `json:"id"`
	Name       string   `json:"name"`
	Value      string   `json:"value"`
	Visible    bool     `json:"visible"`
	ContextIds []string `json:"contextIds"`
}

/**
* The authenticated identity attached to a request by the authentication gate.
 */
type Principal struct {
	UserId   string   `json:"userId"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	// set for consent-scoped sessions, empty for dashboard sessions
	ClientId string `json:"clientId,omitempty"`
}
