package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// fetchCurl shells out to a command-line HTTP client. Used as the last
// fetch tier: some origins answer a curl fingerprint when they refuse the
// native client.
func (f *Fetcher) fetchCurl(ctx context.Context, targetURL string) (string, error) {
	if f.cfg.CurlPath == "" {
		return "", fmt.Errorf("fetcher: no subprocess client configured")
	}

	curlCtx, cancel := context.WithTimeout(ctx, f.cfg.CurlTimeout)
	defer cancel()

	cmd := exec.CommandContext(curlCtx, f.cfg.CurlPath,
		"-s", "-L",
		"-A", f.cfg.UserAgent,
		"-H", "Accept: application/xml, text/xml, */*",
		"--max-filesize", fmt.Sprintf("%d", f.cfg.MaxBodyBytes),
		targetURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("fetcher: subprocess fetch failed: %w (%s)",
			err, truncate(stderr.String(), 120))
	}
	if stdout.Len() == 0 {
		return "", fmt.Errorf("fetcher: subprocess fetch returned empty body")
	}
	return stdout.String(), nil
}

// truncate shortens s to at most n bytes for log-friendly error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
