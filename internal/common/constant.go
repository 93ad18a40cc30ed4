// Package common contains shared constants and sentinel errors used across
// DonorLink components.
package common

// APIKeyHeaderName is the HTTP header carrying the project API key on
// outbound requests to the remote store.
const APIKeyHeaderName = "apikey"

// Collection names as they appear in the remote store and on the change feed.
const (
	DonorsCollection   = "donors"
	RequestsCollection = "blood_requests"
)
