package crawler

import (
	"net/url"
	"regexp"
	"strings"
)

// Locates a path-style community reference such as /r/golang
var referenceRegex = regexp.MustCompile(`/r/(\w{1,21})`)

// TaggedRecord is a record attributed to the community it references
type TaggedRecord struct {
	Record
	Reference string
}

// NormalizeCommunity lower-cases a community name so that equality is case-insensitive
func NormalizeCommunity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ExtractReference returns the first community referenced in body
func ExtractReference(body string) (string, bool) {
	match := referenceRegex.FindStringSubmatch(body)
	if match == nil {
		return "", false
	}
	return NormalizeCommunity(match[1]), true
}

// Tag keeps the records that reference a community other than source.
// Only the first reference of each body counts.
func Tag(records []Record, source string) []TaggedRecord {
	source = NormalizeCommunity(source)

	var tagged []TaggedRecord
	for _, record := range records {
		ref, ok := ExtractReference(record.Body)
		if !ok || ref == source {
			continue
		}
		tagged = append(tagged, TaggedRecord{Record: record, Reference: ref})
	}

	return tagged
}

// CommunityFromURL extracts the community a reddit URL points at
// Example: https://www.reddit.com/r/GoLang/ -> golang
func CommunityFromURL(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	return ExtractReference(parsed.Path)
}
