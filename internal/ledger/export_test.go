package ledger

var (
	Backoff    = backoff
	MaxBackoff = maxBackoff
)
