package domains

import (
	"context"
	"net/http"
	"time"
)

// HTTPSProber reports whether a host answers HTTPS with a working
// certificate. Tests substitute their own.
type HTTPSProber func(ctx context.Context, host string) bool

const probeTimeout = 10 * time.Second

// ProbeHTTPS issues a redirect-aware GET against https://host/. Any
// response, whatever the status code, means TLS handshook successfully;
// connection or certificate errors mean it did not.
func ProbeHTTPS(ctx context.Context, host string) bool {
	client := &http.Client{
		Timeout: probeTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+host+"/", nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return true
}
