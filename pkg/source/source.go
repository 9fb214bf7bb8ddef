// Package source declares the narrow contracts the core consumes from
// peripheral integrations. The adapters behind these interfaces own the
// actual third-party formats; nothing here mandates a wire protocol.
package source

import (
	"context"
	"time"
)

// Message is one item of correspondence returned by a search.
type Message struct {
	ID         string
	Subject    string
	Body       string
	Sender     string
	Recipients []string
	Timestamp  time.Time
}

// CorrespondenceSource searches an email/calendar archive. It is the most
// failure-prone external dependency: callers must treat any error as
// "no co-occurrence evidence this run", never as fatal.
type CorrespondenceSource interface {
	SearchMessages(ctx context.Context, query string, since time.Time) ([]Message, error)
}

// RawContact is one record yielded by a contact source. At least one of
// Email, Name, or (Source, ExternalID) must be present.
type RawContact struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Role       string `json:"role,omitempty"`
	Source     string `json:"source"`
	ExternalID string `json:"external_id,omitempty"`
}

// ContactSource yields raw contact records for identity resolution. There
// is no ordering guarantee across sources.
type ContactSource interface {
	Name() string
	Contacts(ctx context.Context) ([]RawContact, error)
}

// TextResearch asks a hosted model a free-text question. Advisory only:
// implementations may fail or return garbage, and callers must degrade to
// zero extra candidates.
type TextResearch interface {
	Ask(ctx context.Context, prompt string) (string, error)
}
