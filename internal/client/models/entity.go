// Package models defines the client-side domain types of DonorLink: donors,
// blood requests, their drafts and partial updates, and the identifier
// conventions shared by the cache and the remote accessors.
package models

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// TemporaryIDPrefix marks identifiers minted locally for optimistic entries.
// The remote store never issues identifiers with this prefix.
const TemporaryIDPrefix = "tmp-"

// Entity is implemented by every synchronized collection member.
type Entity interface {
	GetID() string
	GetAccessCode() string
	GetCreatedAt() time.Time
}

// NewTemporaryID returns a fresh, lexically sortable local identifier.
func NewTemporaryID() string {
	return TemporaryIDPrefix + ulid.Make().String()
}

// IsTemporaryID reports whether id was minted by NewTemporaryID.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TemporaryIDPrefix)
}

// NormalizeAccessCode trims and upper-cases a user-entered access code.
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

const accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateAccessCode returns a random code in the XXXX-XXXX form.
func GenerateAccessCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	var sb strings.Builder
	for i, b := range buf {
		if i == 4 {
			sb.WriteByte('-')
		}
		sb.WriteByte(accessCodeAlphabet[int(b)%len(accessCodeAlphabet)])
	}
	return sb.String(), nil
}

// BloodGroup is one of the eight ABO/Rh groups.
type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

// BloodGroups lists every valid group in display order.
var BloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg, BloodGroupBPos, BloodGroupBNeg,
	BloodGroupABPos, BloodGroupABNeg, BloodGroupOPos, BloodGroupONeg,
}

func (g BloodGroup) Valid() bool {
	for _, v := range BloodGroups {
		if g == v {
			return true
		}
	}
	return false
}

// Stats aggregates collection sizes for the dashboard.
type Stats struct {
	Donors   int `json:"donors"`
	Requests int `json:"requests"`
}

func optional(p *string, cur string) string {
	if p == nil {
		return cur
	}
	return *p
}
