package carrier

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxAttempts = 3

// Send performs one logical carrier call with bounded exponential retry.
// Server-class responses (5xx, 429) and transport failures are retried;
// client-class responses surface immediately as permanent errors.
func Send(ctx context.Context, client *http.Client, code Code, method, url string, headers map[string]string, body []byte) ([]byte, error) {
	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, &ServerError{Carrier: code, Message: err.Error()}
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &ServerError{Carrier: code, StatusCode: resp.StatusCode, Message: err.Error()}
		}

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return nil, &ServerError{Carrier: code, StatusCode: resp.StatusCode, Message: truncate(payload)}
		case resp.StatusCode >= 400:
			return nil, backoff.Permanent(&ClientError{Carrier: code, StatusCode: resp.StatusCode, Message: truncate(payload)})
		}
		return payload, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(maxAttempts),
	)
}

func truncate(payload []byte) string {
	const limit = 512
	if len(payload) > limit {
		payload = payload[:limit]
	}
	return string(payload)
}
