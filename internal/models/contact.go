package models

import "time"

// LinkPrecedence marks a contact as the head of its cluster or as an alias of it.
type LinkPrecedence string

const (
	PrecedencePrimary   LinkPrecedence = "primary"
	PrecedenceSecondary LinkPrecedence = "secondary"
)

// Contact represents a customer contact in the database
type Contact struct {
	ID             int64          `json:"id" db:"id"`
	PhoneNumber    *string        `json:"phoneNumber,omitempty" db:"phone_number"`
	Email          *string        `json:"email,omitempty" db:"email"`
	LinkedID       *int64         `json:"linkedId,omitempty" db:"linked_id"`
	LinkPrecedence LinkPrecedence `json:"linkPrecedence" db:"link_precedence"`
	CreatedAt      time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time      `json:"updatedAt" db:"updated_at"`
	DeletedAt      *time.Time     `json:"deletedAt,omitempty" db:"deleted_at"`
}

// IsPrimary reports whether the contact heads its cluster.
func (c Contact) IsPrimary() bool {
	return c.LinkPrecedence == PrecedencePrimary
}

// EmailValue returns the email or "" when unset.
func (c Contact) EmailValue() string {
	if c.Email == nil {
		return ""
	}
	return *c.Email
}

// PhoneValue returns the phone number or "" when unset.
func (c Contact) PhoneValue() string {
	if c.PhoneNumber == nil {
		return ""
	}
	return *c.PhoneNumber
}

// NewContact is the write model for inserting a contact. Empty strings are stored as NULL.
type NewContact struct {
	Email          string
	PhoneNumber    string
	LinkedID       *int64
	LinkPrecedence LinkPrecedence
	Now            time.Time
}

// IdentifyRequest represents the incoming request body
type IdentifyRequest struct {
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
}

// Values returns the request fields with null normalized to "".
func (r IdentifyRequest) Values() (email, phoneNumber string) {
	if r.Email != nil {
		email = *r.Email
	}
	if r.PhoneNumber != nil {
		phoneNumber = *r.PhoneNumber
	}
	return email, phoneNumber
}

// ContactResponse represents the contact data in the response.
// The primaryContatctId spelling is part of the published wire format.
type ContactResponse struct {
	PrimaryContactID    int64    `json:"primaryContatctId"`
	Emails              []string `json:"emails"`
	PhoneNumbers        []string `json:"phoneNumbers"`
	SecondaryContactIDs []int64  `json:"secondaryContactIds"`
}

// IdentifyResponse represents the response body
type IdentifyResponse struct {
	Contact ContactResponse `json:"contact"`
}
