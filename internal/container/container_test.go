package container

import (
	"context"
	"testing"

	"relialab/adapters/memory"
	"relialab/app"
	"relialab/domain/lifedata"
	"relialab/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			DefaultConfidence:   0.9,
			DefaultMethod:       "SRM",
			DefaultDistribution: "weibull",
			MaxObservations:     500,
		},
		LogLevel: "ERROR",
	}
}

func TestNewUsesMemoryStorageWithoutAI(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)

	assert.IsType(t, &memory.AnalysisRepository{}, c.AnalysisRepo)
	assert.Nil(t, c.Summarizer)
	require.NotNil(t, c.Service)

	a, err := c.Service.Fit(context.Background(), app.FitRequest{Sample: lifedata.Sample{Failures: []float64{10, 20, 30}}})
	require.NoError(t, err)
	assert.True(t, a.Model.HasParameters())
	assert.NoError(t, c.Shutdown(context.Background()))
}

func TestNewBuildsSummarizerWhenKeyConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.AI = config.AIConfig{OpenAIKey: "sk-test", OpenAIModel: "gpt-4o-mini", MaxTokens: 100}

	c, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, c.Summarizer)
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestInitWithDatabaseSwitchesRepository(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing()
	mock.ExpectClose()

	require.NoError(t, c.InitWithDatabase(sqlx.NewDb(db, "sqlmock")))
	assert.NotNil(t, c.DB)
	_, isMemory := c.AnalysisRepo.(*memory.AnalysisRepository)
	assert.False(t, isMemory)

	require.NoError(t, c.Shutdown(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, c.InitWithDatabase(nil))
}
