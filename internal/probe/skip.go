package probe

// SkipPredicate decides whether a probed video is already optimized and
// should be copied through instead of transcoded. The exact policy is
// deliberately pluggable; the pipeline only depends on this signature.
type SkipPredicate func(*Result) bool

// Codecs considered already high-efficiency; re-encoding these would burn
// hours for little or negative savings.
var efficientCodecs = map[string]bool{
	"hevc": true,
	"av1":  true,
}

// AlreadyEfficient is the default SkipPredicate: true when the primary
// video stream is already encoded with a high-efficiency codec.
func AlreadyEfficient(r *Result) bool {
	if r == nil || r.PrimaryVideo == nil {
		return false
	}
	return efficientCodecs[r.PrimaryVideo.Codec]
}
