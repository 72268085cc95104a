// Package framesource provides capture.FrameSource implementations that do
// not need a media player: Replay plays a directory of still frames back as
// a video, and Static serves a single image with a manually driven clock.
package framesource
