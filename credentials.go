package restfs

import (
	"fmt"
	"strings"
)

// Credentials are handed to a [ClientProvider] on connect. StrictTLS is passed
// to the transport untouched.
type Credentials struct {
	Host      string
	Username  string
	Password  string
	StrictTLS bool
}

// Validate reports ErrConfigurationMissing naming every empty required field
func (c Credentials) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Host) == "" {
		missing = append(missing, "host")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	return nil
}
