// Package scorer implements the Confidence Scorer (C9): a row-level
// validation score plus an anomaly detector over the header match set.
package scorer

import (
	"fmt"

	"github.com/wikisoft/rosterval/internal/domain"
)

const (
	unmappedRatioThreshold    = 0.20
	averageConfidenceThreshold = 0.50
)

// Score computes the ConfidenceRecord for a validated workbook.
// NormalRows excludes any row carrying at least one error finding;
// warnings do not reduce the score.
func Score(parsed *domain.ParsedWorkbook, bundle *domain.ValidationBundle) domain.ConfidenceRecord {
	total := len(parsed.Rows)
	if total == 0 {
		return domain.ConfidenceRecord{Score: 1, Label: label(1), Factors: domain.ConfidenceFactors{}}
	}

	errorRows := distinctRows(bundle.Errors)
	warningRows := distinctRows(bundle.Warnings)

	factors := domain.ConfidenceFactors{
		TotalRows:   total,
		ErrorRows:   len(errorRows),
		WarningRows: len(warningRows),
		NormalRows:  total - len(errorRows),
	}

	score := float64(factors.NormalRows) / float64(total)
	return domain.ConfidenceRecord{Score: score, Label: label(score), Factors: factors}
}

func label(score float64) string {
	switch {
	case score >= 0.95:
		return "excellent"
	case score >= 0.80:
		return "good"
	case score >= 0.50:
		return "fair"
	default:
		return "poor"
	}
}

// DetectAnomalies runs the unmapped-ratio and average-confidence checks
// against a header match set and rolls them into a recommendation.
func DetectAnomalies(matches *domain.MatchSet) domain.AnomalyReport {
	active := matches.ActiveMatches()
	var anomalies []domain.Anomaly

	if len(active) > 0 {
		unmapped := 0
		for _, hm := range active {
			if hm.Provenance == domain.ProvenanceUnmapped {
				unmapped++
			}
		}
		ratio := float64(unmapped) / float64(len(active))
		if ratio > unmappedRatioThreshold {
			anomalies = append(anomalies, domain.Anomaly{
				Type: domain.AnomalyHighUnmappedRatio, Severity: domain.SeverityWarn,
				Message: fmt.Sprintf("unmapped headers ratio %.0f%% exceeds the 20%% threshold", ratio*100),
			})
		}
	}

	if avg := matches.AverageConfidence(); avg < averageConfidenceThreshold {
		anomalies = append(anomalies, domain.Anomaly{
			Type: domain.AnomalyLowAverageConfidence, Severity: domain.SeverityWarn,
			Message: fmt.Sprintf("average match confidence %.2f is below the 0.5 threshold", avg),
		})
	}

	recommendation := domain.RecommendAutoProceed
	if len(anomalies) > 0 {
		recommendation = domain.RecommendManualReview
	}

	return domain.AnomalyReport{Detected: len(anomalies) > 0, Anomalies: anomalies, Recommendation: recommendation}
}

func distinctRows(findings []domain.Finding) map[int]bool {
	out := make(map[int]bool, len(findings))
	for _, f := range findings {
		out[f.Row] = true
	}
	return out
}
