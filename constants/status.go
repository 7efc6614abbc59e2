package constants

// Stage names a pipeline step; every outcome is attributed to exactly one.
type Stage string

// Stable values (used in responses, logs and metric labels).
const (
	StageClassify  Stage = "classify"
	StageExtract   Stage = "extract"
	StageFields    Stage = "fields"
	StageEmission  Stage = "emission"
	StageNarrative Stage = "narrative"
	StagePersist   Stage = "persist"
	StageDone      Stage = "done"
)

// TextSource is the provenance of extracted text.
type TextSource string

const (
	TextSourceNative TextSource = "native"
	TextSourceOCR    TextSource = "ocr"
)
