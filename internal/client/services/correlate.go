package services

import "github.com/dmitrijs2005/donorlink/internal/client/models"

// CorrelateDonors matches a pushed donor to a pending insert. Access codes
// are unique per donor.
func CorrelateDonors(optimistic, pushed models.Donor) bool {
	return optimistic.AccessCode == pushed.AccessCode
}

// CorrelateRequests matches a pushed request to a pending insert. Several
// requests may share a code, so every caller-supplied field must agree.
func CorrelateRequests(optimistic, pushed models.Request) bool {
	return optimistic.AccessCode == pushed.AccessCode &&
		optimistic.ContactNumber == pushed.ContactNumber &&
		optimistic.Location == pushed.Location &&
		optimistic.BloodGroup == pushed.BloodGroup &&
		optimistic.PatientName == pushed.PatientName &&
		optimistic.Urgency == pushed.Urgency &&
		optimistic.Notes == pushed.Notes
}
