package models

// CallContext identifies the call a recording command applies to, along
// with the caller/callee identity carried into the metadata document.
// Telephony providers deliver event callbacks asynchronously, so the
// context travels with every command instead of living in server state.
type CallContext struct {
	CallID         string `json:"call_id"`
	AccountID      string `json:"account_id"`
	From           string `json:"from"`
	To             string `json:"to"`
	CallerIDName   string `json:"caller_id_name"`
	CallerIDNumber string `json:"caller_id_number"`
}
