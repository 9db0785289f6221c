// Package escalate carries a confirmed emergency out to the world: it speaks
// an urgent alert aloud, records the event in history, and notifies the
// emergency contacts by SMS. Each channel fails independently; the dispatch
// result reports exactly what got through.
package escalate

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/echovoice/echovoice/pkg/types"
)

// contactsFile is the YAML document shape of the contact roster.
type contactsFile struct {
	Contacts []types.Contact `yaml:"contacts"`
}

// LoadContacts reads the emergency contact roster from a YAML file. Entries
// without a phone number are dropped. A missing file is an error; an empty
// roster is not.
func LoadContacts(path string) ([]types.Contact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts file: %w", err)
	}

	var parsed contactsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse contacts file: %w", err)
	}

	contacts := make([]types.Contact, 0, len(parsed.Contacts))
	for _, c := range parsed.Contacts {
		c.Phone = strings.TrimSpace(c.Phone)
		if c.Phone == "" {
			continue
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}
