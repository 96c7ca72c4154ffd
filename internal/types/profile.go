package types

import "time"

// StoredImage is an object uploaded to object storage. The key is what the
// storage layer needs to delete or replace it; the URL is what clients render.
type StoredImage struct {
	URL string `json:"url"`
	Key string `json:"-"`
}

// Profile holds the student-entered contact information. The email here is a
// contact field, independent of the login email on the User record.
type Profile struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name,omitempty"`
	Phone     string       `json:"phone,omitempty"`
	Address   string       `json:"address,omitempty"`
	Email     string       `json:"email,omitempty"`
	Image     *StoredImage `json:"image,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// UpdateProfileParams carries the mutable profile fields. Nil means
// "leave unchanged".
type UpdateProfileParams struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	Email   *string `json:"email,omitempty"`
}
