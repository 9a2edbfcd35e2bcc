// Package mse helps Service Adapters for Media-Source-Extensions-backed
// players recover the true content duration when the video element's own
// clock and duration are buffer-relative (spec §1, §3 AugmentedVideo,
// §4.1 GetDuration). It does this by parsing the initialization segment's
// moov/mvhd box directly, the same box a real MSE SourceBuffer's
// appendBuffer call consumes, rather than trusting the element.
package mse

import (
	"errors"
	"fmt"
	"io"

	mp4 "github.com/abema/go-mp4"
)

// ErrNoMvhd is returned when the initialization segment has no moov/mvhd
// box — not a valid fragmented-MP4 init segment.
var ErrNoMvhd = errors.New("mse: init segment has no moov/mvhd box")

// ProbeDuration reads the MP4 boxes in r (an initialization segment, as
// fetched by the page before handing it to a SourceBuffer) and returns the
// movie duration in seconds, derived from moov/mvhd's timescale and
// duration fields.
//
// Fragmented MP4 init segments carry a zero or placeholder mvhd duration
// when the manifest (DASH/HLS) is the true source of truth; callers should
// treat a zero result as "unknown" and fall back per spec §4.1's failure
// policy, not as an authoritative zero-length video.
func ProbeDuration(r io.ReadSeeker) (seconds float64, err error) {
	var timescale uint32
	var duration uint64
	found := false

	_, err = mp4.ReadBoxStructure(r, func(h *mp4.BoxInfo) (interface{}, error) {
		switch h.Type.String() {
		case "moov":
			return h.Expand()
		case "mvhd":
			box, _, perr := h.ReadPayload()
			if perr != nil {
				return nil, perr
			}
			mvhd, ok := box.(*mp4.Mvhd)
			if !ok {
				return nil, fmt.Errorf("mse: unexpected mvhd payload type %T", box)
			}
			timescale = mvhd.Timescale
			if mvhd.GetVersion() == 0 {
				duration = uint64(mvhd.DurationV0)
			} else {
				duration = mvhd.DurationV1
			}
			found = true
			return nil, nil
		default:
			return nil, nil
		}
	})
	if err != nil {
		return 0, fmt.Errorf("mse: parsing init segment: %w", err)
	}
	if !found {
		return 0, ErrNoMvhd
	}
	if timescale == 0 {
		return 0, nil
	}
	return float64(duration) / float64(timescale), nil
}
