package mongo

// DBObserver records latency and error class for one logical DB operation.
// Satisfied by observability.Prom; nil disables recording.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

func observe(obs DBObserver, op string, fn func() error) error {
	if obs == nil {
		return fn()
	}

	return obs.ObserveDB(op, fn)
}
