package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRelPath is where the profile document lives relative to the
// executable (or, failing that, the working directory).
const DefaultRelPath = "data/personal_info.json"

// ErrInvalidProfile is wrapped by LoadError when the document parses but
// lacks required fields.
var ErrInvalidProfile = errors.New("invalid profile")

// LoadError reports a missing, unreadable or malformed profile document.
// It is fatal at startup: the service must not run without a prompt.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading profile %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads and validates the profile document at path. JSON and YAML are
// both accepted; JSON is decoded by the YAML parser, which keeps the skills
// category order.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, &LoadError{Path: path, Err: err}
	}
	p, err := Parse(data)
	if err != nil {
		return Profile{}, &LoadError{Path: path, Err: err}
	}
	return p, nil
}

// Parse decodes and validates a profile document held in memory.
func Parse(data []byte) (Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Profile{}, fmt.Errorf("%w: empty document", ErrInvalidProfile)
		}
		return Profile{}, fmt.Errorf("decoding document: %w", err)
	}
	if err := validate(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func validate(p Profile) error {
	var missing []string
	check := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}
	check(strings.TrimSpace(p.Name) != "", "name")
	check(p.Title != "", "title")
	check(p.Contact.Email != "", "contact.email")
	check(p.Contact.Location != "", "contact.location")
	check(p.Summary != "", "summary")
	check(p.Education != nil, "education")
	check(p.Experience != nil, "experience")
	check(p.Skills != nil, "skills")
	check(p.Projects != nil, "projects")

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrInvalidProfile, strings.Join(missing, ", "))
	}
	return nil
}

// ResolvePath returns configured when set. Otherwise it looks for
// DefaultRelPath next to the running executable and then in the working
// directory, returning the first that exists (or the working-directory
// candidate so the load error names a sensible path).
func ResolvePath(configured string) string {
	if configured != "" {
		return configured
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), DefaultRelPath)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return DefaultRelPath
}
