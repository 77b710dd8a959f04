package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/voicepoll/voice-survey-service/internal/domain"
	"github.com/voicepoll/voice-survey-service/internal/repository"
)

type analyticsRepository interface {
	Capabilities() domain.SchemaCapabilities
	CountByQuestion(ctx context.Context, surveyID int64) ([]repository.QuestionCount, error)
	NumericValues(ctx context.Context, surveyID int64) ([]repository.NumericValue, error)
	TopKeyInsights(ctx context.Context, surveyID int64, limit int) ([]string, error)
	DailyCounts(ctx context.Context, surveyID int64) ([]repository.DailyCount, error)
}

const topInsightLimit = 5

// QuestionStats aggregates one question's answers.
type QuestionStats struct {
	QuestionID    int64            `json:"questionId"`
	Text          string           `json:"text"`
	ResponseCount int64            `json:"responseCount"`
	NumericCount  int64            `json:"numericCount,omitempty"`
	Average       *float64         `json:"average,omitempty"`
	Distribution  map[string]int64 `json:"distribution,omitempty"`
}

// SurveyAnalytics is the full report for one survey.
type SurveyAnalytics struct {
	SurveyID              int64                   `json:"surveyId"`
	Questions             []QuestionStats         `json:"questions"`
	TopInsights           []string                `json:"topInsights"`
	ResponsesByDay        []repository.DailyCount `json:"responsesByDay"`
	HasNumericValueColumn bool                    `json:"hasNumericValueColumn"`
	HasKeyInsightsColumn  bool                    `json:"hasKeyInsightsColumn"`
}

type AnalyticsService struct {
	repo analyticsRepository
}

func NewAnalyticsService(repo analyticsRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

// SurveyReport assembles per-question counts, numeric stats, top insights
// and the per-day histogram. Optional columns the schema lacks degrade to
// absent sections rather than failing the report.
func (s *AnalyticsService) SurveyReport(ctx context.Context, surveyID int64) (*SurveyAnalytics, error) {
	caps := s.repo.Capabilities()

	counts, err := s.repo.CountByQuestion(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate question counts: %w", err)
	}

	report := &SurveyAnalytics{
		SurveyID:              surveyID,
		Questions:             make([]QuestionStats, 0, len(counts)),
		TopInsights:           []string{},
		HasNumericValueColumn: caps.HasNumericValue,
		HasKeyInsightsColumn:  caps.HasKeyInsights,
	}

	numericByQuestion := map[int64][]float64{}
	if caps.HasNumericValue {
		values, err := s.repo.NumericValues(ctx, surveyID)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate numeric values: %w", err)
		}
		for _, v := range values {
			numericByQuestion[v.QuestionID] = append(numericByQuestion[v.QuestionID], v.Value)
		}
	}

	for _, count := range counts {
		stats := QuestionStats{
			QuestionID:    count.QuestionID,
			Text:          count.Text,
			ResponseCount: count.Count,
		}

		if values := numericByQuestion[count.QuestionID]; len(values) > 0 {
			stats.NumericCount = int64(len(values))
			avg := average(values)
			stats.Average = &avg
			stats.Distribution = distribution(values)
		}

		report.Questions = append(report.Questions, stats)
	}

	if caps.HasKeyInsights {
		insights, err := s.repo.TopKeyInsights(ctx, surveyID, topInsightLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to get top insights: %w", err)
		}
		if insights != nil {
			report.TopInsights = insights
		}
	}

	days, err := s.repo.DailyCounts(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily counts: %w", err)
	}
	report.ResponsesByDay = days
	if report.ResponsesByDay == nil {
		report.ResponsesByDay = []repository.DailyCount{}
	}

	return report, nil
}

// average rounds to two decimals, matching how the report is displayed.
func average(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*100) / 100
}

// distribution tallies answers per distinct numeric value.
func distribution(values []float64) map[string]int64 {
	dist := make(map[string]int64)

	keys := append([]float64(nil), values...)
	sort.Float64s(keys)
	for _, v := range keys {
		dist[formatValue(v)]++
	}

	return dist
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%g", v)
}
