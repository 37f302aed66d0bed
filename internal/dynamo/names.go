package dynamo

import "fmt"

// ValidateName checks that name is non-empty and made of ASCII letters,
// digits and underscores only.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrConfiguration)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return fmt.Errorf("%w: name %q contains %q", ErrConfiguration, name, r)
		}
	}
	return nil
}
