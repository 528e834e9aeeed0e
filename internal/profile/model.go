package profile

import "time"

// User is the account of the signed-in user.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Verified    bool      `json:"isVerified,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// Profile is the public creator profile of a user.
type Profile struct {
	UserID      string            `json:"userId"`
	Username    string            `json:"username,omitempty"`
	DisplayName string            `json:"displayName,omitempty"`
	Bio         string            `json:"bio,omitempty"`
	AvatarURL   string            `json:"avatar,omitempty"`
	Location    string            `json:"location,omitempty"`
	Niches      []string          `json:"niches,omitempty"`
	SocialLinks map[string]string `json:"socialLinks,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt,omitzero"`
}

// Update holds the profile fields to change. Nil fields are left untouched.
type Update struct {
	DisplayName *string           `json:"displayName,omitempty"`
	Bio         *string           `json:"bio,omitempty"`
	Location    *string           `json:"location,omitempty"`
	Niches      []string          `json:"niches,omitempty"`
	SocialLinks map[string]string `json:"socialLinks,omitempty"`
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u.DisplayName == nil && u.Bio == nil && u.Location == nil &&
		u.Niches == nil && u.SocialLinks == nil
}

// ApplyTo returns p with the fields set in u replaced.
func (u Update) ApplyTo(p Profile) Profile {
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.Niches != nil {
		p.Niches = u.Niches
	}
	if u.SocialLinks != nil {
		p.SocialLinks = u.SocialLinks
	}

	return p
}

// MediaUpload is a file to attach to the profile.
type MediaUpload struct {
	Filename    string
	ContentType string // detected from Data when empty
	Kind        string // "avatar" or "gallery"; the backend default when empty
	Data        []byte
}

// Media is an uploaded file as stored by the backend.
type Media struct {
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}
