package store

import "golang.org/x/sync/singleflight"

// inFlight coalesces concurrent requests for the same composite key into
// one underlying call. All callers that attach before the call settles
// share the single outcome; the key is forgotten once it settles, so a
// later request starts a fresh call.
func inFlight[T any](group *singleflight.Group, key string, fn func() (T, error)) (T, error) {
	value, err, _ := group.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}
