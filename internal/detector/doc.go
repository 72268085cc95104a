// Package detector runs one credits detection session per playback.
//
// A Detector owns the fingerprint stores and wires the capture pool, the
// image pipeline and the match engine together for the episode being
// played. Start begins a session, Stop halts it gracefully, StoreData merges
// what was learned into the season record on disk, and Terminate drops every
// reference the session held.
//
// When reuse is enabled and the season record already holds a credits offset
// for the episode, Start skips capture entirely: the session only watches the
// play clock and fires once the stored offset is reached.
package detector
