package catalog

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/lifetime-memories/albumkeeper/internal/github"
)

// ErrInvalidName is wrapped by every local repository name rejection. The
// returned error is also a validation-class *github.APIError.
var ErrInvalidName = errors.New("invalid repository name")

const maxNameLength = 100

var forbiddenSequences = []string{"..", "~", "^", ":", "\\", "/", "?", "*", "[", "]"}

var reservedNames = func() map[string]struct{} {
	names := map[string]struct{}{"con": {}, "prn": {}, "aux": {}, "nul": {}}
	for i := 1; i <= 9; i++ {
		names[fmt.Sprintf("com%d", i)] = struct{}{}
		names[fmt.Sprintf("lpt%d", i)] = struct{}{}
	}
	return names
}()

// ValidateRepoName applies the local naming rules before anything is sent to
// GitHub. It returns the trimmed name.
func ValidateRepoName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return "", invalidName("repository name cannot be empty")
	case len(trimmed) > maxNameLength:
		return "", invalidName(fmt.Sprintf("repository name cannot exceed %d characters", maxNameLength))
	}
	first := rune(trimmed[0])
	if first > unicode.MaxASCII || !(unicode.IsLetter(first) || unicode.IsDigit(first)) {
		return "", invalidName("repository name must start with a letter or number")
	}
	for _, seq := range forbiddenSequences {
		if strings.Contains(trimmed, seq) {
			return "", invalidName(fmt.Sprintf("repository name cannot contain %q", seq))
		}
	}
	if strings.ContainsFunc(trimmed, unicode.IsSpace) {
		return "", invalidName("repository name cannot contain spaces")
	}
	if _, ok := reservedNames[strings.ToLower(trimmed)]; ok {
		return "", invalidName(fmt.Sprintf("%q is a reserved name", trimmed))
	}
	return trimmed, nil
}

func invalidName(reason string) error {
	return &github.APIError{Kind: github.KindValidation, Message: reason, Err: ErrInvalidName}
}
