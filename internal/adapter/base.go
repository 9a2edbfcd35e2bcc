package adapter

// Base implements every optional Adapter capability as "unsupported"
// (ok=false). Concrete per-site adapters embed Base and override only the
// capabilities their site needs, mirroring the teacher's pattern of leaving
// optional callback fields nil and checking before calling them — here
// expressed as embedding plus override, since Go interfaces don't have
// optional methods.
type Base struct{}

func (Base) GetPlaybackTime(Video) (float64, bool)   { return 0, false }
func (Base) GetDuration(Video) (float64, bool)        { return 0, false }
func (Base) SeekByDelta(Video, float64) bool          { return false }
func (Base) SeekToTime(Video, float64, float64) bool  { return false }
func (Base) SeekButtons(Video) (SeekButtons, bool)    { return SeekButtons{}, false }
