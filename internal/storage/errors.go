package storage

import "github.com/cockroachdb/errors"

// Error classes. Match them with errors.Is; the original driver error stays
// reachable through the chain.
var (
	// ErrConnection marks failures to establish a session with the engine.
	ErrConnection = errors.New("connection error")
	// ErrConfiguration marks invalid construction parameters.
	ErrConfiguration = errors.New("configuration error")
	// ErrQuery marks statement failures reported by the engine.
	ErrQuery = errors.New("query error")
	// ErrRow marks a single ingestion row that could not be loaded.
	ErrRow = errors.New("row error")
)

func queryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuery) || errors.Is(err, ErrConnection) || errors.Is(err, ErrConfiguration) {
		return err
	}
	return errors.Mark(err, ErrQuery)
}

func configurationError(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}
