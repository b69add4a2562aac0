package vision

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

var dataURLPattern = regexp.MustCompile(`(?i)^data:([\w/+.-]+);base64,(.+)$`)

// DecodeDataURL returns the MIME type and payload of a base64 data URL.
func DecodeDataURL(s string) (string, []byte, error) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return "", nil, fmt.Errorf("%w: dataUrl must be a base64 data URL", ErrInvalidDocument)
	}

	payload := strings.TrimSpace(m[2])
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", nil, fmt.Errorf("%w: bad base64 payload", ErrInvalidDocument)
		}
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}
	return strings.ToLower(m[1]), data, nil
}
