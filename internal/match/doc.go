// Package match decides from a stream of frame fingerprints whether end
// credits are playing.
//
// Every fingerprint is scored against the credits templates, the previous
// fingerprint and the fingerprints captured around the same time in earlier
// episodes. Hits and misses accumulate under one lock; enough consecutive
// hits latch the detection once per run.
package match
