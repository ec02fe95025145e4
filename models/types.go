package models

// ProviderKind tags a speech-synthesis backend.
type ProviderKind string

const (
	ProviderPrimary  ProviderKind = "openai"
	ProviderFallback ProviderKind = "google"
)

// SourceLanguage is the language descriptions are written in.
const SourceLanguage = "en"

// NarrationRequest is the immutable input to the narration manager
type NarrationRequest struct {
	Text             string
	TargetLanguage   string
	Voice            string
	TranslateEnabled bool
}

// NarrationResult is produced once per request; the caller owns Audio.
type NarrationResult struct {
	Audio         []byte
	Provider      ProviderKind
	WasTranslated bool
	// Text is what was actually spoken (translated or original).
	Text string
}

// MediaDuration is recomputed on every probe and never cached.
type MediaDuration struct {
	Seconds    float64
	SourcePath string
}

// MediaInfo describes a probed container
type MediaInfo struct {
	Path       string  `json:"path"`
	Duration   float64 `json:"duration"`
	Format     string  `json:"format"`
	Size       int64   `json:"size"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	VideoCodec string  `json:"video_codec,omitempty"`
	AudioCodec string  `json:"audio_codec,omitempty"`
	HasVideo   bool    `json:"has_video"`
	HasAudio   bool    `json:"has_audio"`
}

// Strategy is how narration audio is fitted to the video length.
type Strategy string

const (
	StrategyIdentity  Strategy = "identity"
	StrategyTrim      Strategy = "trim"
	StrategyLoopToFit Strategy = "loop_to_fit"
	StrategyPad       Strategy = "pad"
)

// DurationTolerance is the fixed window (seconds) inside which durations are equal.
const DurationTolerance = 0.1

// ReconciliationPlan is chosen once per merge and never mutated;
// derive a new one if the inputs change.
type ReconciliationPlan struct {
	Strategy      Strategy
	VideoDuration float64
	AudioDuration float64
	// LoopCount is the total number of plays of the source audio (LoopToFit only).
	LoopCount int
}

// ReconcileResult reports what the reconciler actually did.
type ReconcileResult struct {
	OutputPath string
	Plan       ReconciliationPlan
	// Applied differs from Plan.Strategy only when looping failed and padding ran.
	Applied Strategy
}
