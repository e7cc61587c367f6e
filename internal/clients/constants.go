package clients

import "time"

const (
	MAX_RETRIES     = 3
	INITIAL_BACKOFF = 250 * time.Millisecond
	MAX_BACKOFF     = 2 * time.Second
)

const (
	anthropicVersion   = "bedrock-2023-05-31"
	inferenceMaxTokens = 1000
)
