package pipeline

// Kind names one of the two artifacts kept per video.
type Kind string

const (
	KindOriginal Kind = "original"
	KindDerived  Kind = "derived"
)

// BlobKey derives the blob store key for one artifact of a video. The mapping
// is pure, so any component can recompute it from the video ID alone. Unknown
// kinds report false.
func BlobKey(videoID string, kind Kind) (string, bool) {
	switch kind {
	case KindOriginal:
		return videoID + "/video", true
	case KindDerived:
		return videoID + "/compressed_video", true
	}
	return "", false
}
