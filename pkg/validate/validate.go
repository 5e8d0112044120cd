// Package validate provides pure input validation and sanitization helpers:
// company numbers, API keys, filenames, and output path containment.
package validate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	apiKeyPattern        = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	companyNumberPattern = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)
	unsafeFilenameChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	digitsOnly           = regexp.MustCompile(`^[0-9]+$`)
)

// APIKey validates the Companies House API key format. It does not test
// actual authentication, only that the value is plausibly a key.
func APIKey(key string) error {
	if key == "" {
		return fmt.Errorf("API key is required")
	}
	if len(key) < 20 {
		return fmt.Errorf("API key appears invalid (too short)")
	}
	if !apiKeyPattern.MatchString(key) {
		return fmt.Errorf("API key contains invalid characters")
	}
	return nil
}

// CompanyNumber validates and normalizes a company number: uppercased,
// and zero-padded to 8 characters when purely numeric.
func CompanyNumber(number string) (string, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return "", fmt.Errorf("company number must be non-empty")
	}
	if !companyNumberPattern.MatchString(number) {
		return "", fmt.Errorf("invalid company number format: %s", number)
	}
	if digitsOnly.MatchString(number) && len(number) < 8 {
		number = strings.Repeat("0", 8-len(number)) + number
	}
	return number, nil
}

// SanitizeFilename removes characters that are unsafe on common filesystems
// and enforces a length limit, preserving the extension when truncating.
func SanitizeFilename(name string, maxLength int) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")

	if maxLength > 0 && len(name) > maxLength {
		ext := filepath.Ext(name)
		if ext != "" && len(ext) < maxLength {
			name = name[:maxLength-len(ext)] + ext
		} else {
			name = name[:maxLength]
		}
	}

	if name == "" {
		return "unnamed"
	}
	return name
}

// SafeOutputPath joins name onto baseDir and rejects any result that would
// escape baseDir (path traversal).
func SafeOutputPath(baseDir, name string) (string, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	target, err := filepath.Abs(filepath.Join(base, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve target path: %w", err)
	}
	if target != base && !strings.HasPrefix(target, base+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s", name)
	}
	return target, nil
}
