package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// FileCorrespondence serves messages from a JSON export on disk (one
// array of messages). The export is read per search so a refreshed file
// is picked up without a restart.
type FileCorrespondence struct {
	Path string
}

func (f *FileCorrespondence) SearchMessages(ctx context.Context, query string, since time.Time) ([]Message, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading correspondence export: %w", err)
	}
	var all []Message
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("decoding correspondence export: %w", err)
	}

	needle := strings.ToLower(query)
	var out []Message
	for _, m := range all {
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

// FileContacts yields contacts from a JSON export on disk.
type FileContacts struct {
	SourceName string
	Path       string
}

func (f *FileContacts) Name() string { return f.SourceName }

func (f *FileContacts) Contacts(ctx context.Context) ([]RawContact, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading contact export: %w", err)
	}
	var contacts []RawContact
	if err := json.Unmarshal(raw, &contacts); err != nil {
		return nil, fmt.Errorf("decoding contact export: %w", err)
	}
	return contacts, nil
}
