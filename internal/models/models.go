package models

import "time"

// Role is a user's access level
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ItemType tells whether a report is about a lost or a found item
type ItemType string

const (
	ItemTypeLost  ItemType = "lost"
	ItemTypeFound ItemType = "found"
)

// ItemStatus is the lifecycle state of an item.
// Legal transitions: open -> claimed, any -> closed.
type ItemStatus string

const (
	ItemStatusOpen    ItemStatus = "open"
	ItemStatusClaimed ItemStatus = "claimed"
	ItemStatusClosed  ItemStatus = "closed"
)

// MaxItemPhotos is the most photos an item can carry
const MaxItemPhotos = 3

// ClaimStatus is the review state of a claim
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// User represents a registered user
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Contact      string    `json:"contact"`
	AvatarURL    *string   `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Item represents a lost or found item report
type Item struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Type        ItemType   `json:"type"`
	DatePosted  time.Time  `json:"datePosted"`
	Status      ItemStatus `json:"status"`
	Photos      []string   `json:"photos"`
	CreatedAt   time.Time  `json:"createdAt"`

	// Claimant details are served only through the item's claims listing.
	ClaimedBy     *string    `json:"-"`
	ClaimedAt     *time.Time `json:"-"`
	ClaimName     *string    `json:"-"`
	ClaimEmail    *string    `json:"-"`
	ClaimProof    *string    `json:"-"`
	ClaimProofURL *string    `json:"-"`
}

// ItemFilter narrows the recent items feed. Zero fields match everything.
type ItemFilter struct {
	Type  ItemType
	Query string
}

// Claimant is the claim metadata recorded on an item when it leaves open
type Claimant struct {
	UserID   string
	Name     string
	Email    string
	Proof    string
	ProofURL *string
	At       time.Time
}

// Claim represents an ownership claim on an item
type Claim struct {
	ID               string      `json:"id"`
	UserID           string      `json:"userId"`
	ItemID           string      `json:"itemId"`
	Status           ClaimStatus `json:"status"`
	FullName         string      `json:"fullName"`
	Email            string      `json:"email"`
	ProofDescription string      `json:"proofDescription"`
	ProofURL         *string     `json:"proofUrl,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}
