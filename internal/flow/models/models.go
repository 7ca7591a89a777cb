package models

// PendingLogin is the server side of an in-flight authorization attempt,
// keyed by the opaque state token handed to the browser. It exists for at
// most the store TTL and is consumed exactly once by the callback.
type PendingLogin struct {
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
}

// TokenPair carries the opaque signed tokens minted by the IdP. The gateway
// never persists these; they travel to the browser as cookies only.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
