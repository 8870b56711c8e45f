package preprocess

import (
	"regexp"
	"strings"
)

// ExtensionPrefix prefixes the content type in every metadata key.
const ExtensionPrefix = "x-request-example-"

// lineContent matches a maximal run of characters that are not line
// terminators.
var lineContent = regexp.MustCompile(`[^\n\r\x{0085}\x{2028}\x{2029}]+`)

// ExtensionKey is the metadata key under which the example for contentType is
// stored.
func ExtensionKey(contentType string) string {
	return ExtensionPrefix + contentType
}

// FormatLiteral turns serialized example text into a run of C string literals:
// quotes are escaped, every non-empty line is wrapped in quotes and newlines
// become three tabs. A quote already in the text gets exactly one backslash;
// the wrapping quotes are added after escaping and stay bare.
func FormatLiteral(text string) string {
	escaped := strings.ReplaceAll(text, `"`, `\"`)
	quoted := lineContent.ReplaceAllString(escaped, `"$0"`)
	return strings.ReplaceAll(quoted, "\n", "\t\t\t")
}
