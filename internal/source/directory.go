package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/advisorystack/csaf-walker/internal/fetch"
)

// streamDirectory walks a directory-based distribution through its index.txt
// listing. Companion file URLs are derived by suffixing the document URL,
// which is the publishing convention for directory layouts; the fetch of a
// companion that does not exist is harmless.
func (l *Locator) streamDirectory(
	ctx context.Context, dirURL string, base int, emit EmitFunc, onSkip SkipFunc,
) (int, error) {
	indexURL := strings.TrimSuffix(dirURL, "/") + "/index.txt"
	res, err := l.client.Document(ctx, indexURL, fetch.Validators{})
	if err != nil {
		return 0, &DiscoveryError{Source: indexURL, Err: err}
	}

	lines := strings.Split(string(res.Body), "\n")
	l.logger.Debug("Walking directory distribution",
		zap.String("directory", dirURL),
		zap.Int("lines", len(lines)))

	emitted := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "..") {
			onSkip(SkippedEntry{Feed: dirURL, Entry: line, Reason: "path escapes the distribution directory"})
			continue
		}
		if !strings.HasSuffix(line, ".json") {
			onSkip(SkippedEntry{Feed: dirURL, Entry: line, Reason: fmt.Sprintf("unexpected index entry %q", line)})
			continue
		}

		docURL := strings.TrimSuffix(dirURL, "/") + "/" + line
		desc := Descriptor{
			DocumentURL: docURL,
			DigestURLs: map[string]string{
				"sha256": docURL + ".sha256",
				"sha512": docURL + ".sha512",
			},
			SignatureURL: docURL + ".asc",
			Position:     base + emitted,
			Feed:         dirURL,
		}
		if err := emit(desc); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}
