package request

// CompleteFitnessConnect is the callback payload the frontend relays after
// the provider redirects back: the authorization code plus the state value
// that keys the stored verifier. When the provider redirected with an
// error instead (the member denied consent), Error carries it and no code
// is present.
type CompleteFitnessConnect struct {
	Code  string `json:"code" validate:"required_without=Error"`
	State string `json:"state" validate:"required"`
	Error string `json:"error"`
}
