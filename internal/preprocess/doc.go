// Package preprocess turns raw captured frame buffers into fingerprints.
//
// It provides a catalogue of stateless grayscale transforms (format
// conversion, auto-levelling, contrast, resizing, 3x3 morphology, mask
// multiplication and conditional blurring), the median-of-deviations hash, and
// a Pipeline runner that threads an image through an ordered list of Steps.
// Processor wires these into the raw and filtered fingerprint branches used by
// the capture workers.
package preprocess
