// Package capture runs the frame capture worker pool.
//
// One producer samples frames from a FrameSource at the configured interval
// and feeds a bounded Queue whose capacity equals the consumer count. The
// consumers fingerprint each frame and hand the result to a Handler. A full
// queue never blocks the producer for longer than one interval: the frame is
// dropped and logged as a desync instead.
package capture
