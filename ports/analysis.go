package ports

import (
	"context"
	"io"

	"relialab/domain/core"
	"relialab/domain/lifedata"
)

// AnalysisRepository persists fitted analyses
type AnalysisRepository interface {
	Save(ctx context.Context, analysis *lifedata.Analysis) error
	Get(ctx context.Context, id core.AnalysisID) (*lifedata.Analysis, error)
	List(ctx context.Context, limit, offset int) ([]*lifedata.Analysis, error)
	Delete(ctx context.Context, id core.AnalysisID) error
	SaveOverrides(ctx context.Context, id core.AnalysisID, overrides map[string]float64) error
}

// SummaryRequest carries only scalar results; raw observations never leave the process
type SummaryRequest struct {
	Name            string
	Distribution    lifedata.Distribution
	Method          lifedata.Method
	Parameters      map[string]float64
	RSquared        float64
	LogLikelihood   float64
	FailureCount    int
	SuspensionCount int
	BLives          map[string]float64 // e.g. "B10" → time, Weibull only
}

// Summarizer turns fitted parameters into a plain-language narrative
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// SampleReader decodes life data from an uploaded file
type SampleReader interface {
	Read(r io.Reader, filename string) (lifedata.GroupedSample, error)
}
