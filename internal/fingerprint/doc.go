// Package fingerprint defines the compact perceptual fingerprints produced for
// each captured frame, the keys they are stored under, and the similarity
// metric used to compare them.
//
// A fingerprint is a fixed-length vector of tri-state pixels. Frames always
// produce On/Off values; Unknown only appears in reference templates where a
// position should not influence the comparison. Fingerprints are packed into
// arbitrary precision integers for persistence via HashToInt and IntToHash.
//
// Similarity returns a percentage. Callers must treat any result below their
// detect level, including negative values produced by the uncertainty
// correction, as "no match".
package fingerprint
