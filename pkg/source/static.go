package source

import (
	"context"
	"strings"
	"time"
)

// StaticCorrespondence serves a fixed message set, filtered by timestamp.
// Used in tests and local development. Err, when set, is returned from
// every search to exercise degradation paths.
type StaticCorrespondence struct {
	Messages []Message
	Err      error
}

func (s *StaticCorrespondence) SearchMessages(ctx context.Context, query string, since time.Time) ([]Message, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []Message
	needle := strings.ToLower(query)
	for _, m := range s.Messages {
		if m.Timestamp.Before(since) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(m.Subject+"\n"+m.Body), needle) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// StaticContacts is a fixed-batch contact source.
type StaticContacts struct {
	SourceName string
	Records    []RawContact
	Err        error
}

func (s *StaticContacts) Name() string { return s.SourceName }

func (s *StaticContacts) Contacts(ctx context.Context) ([]RawContact, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Records, nil
}
