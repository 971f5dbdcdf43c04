package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport summarizes annotation progress over a sequence of runs,
// oldest first.
func BuildTrendReport(runs []Run, window time.Duration) (TrendReport, error) {
	if len(runs) == 0 {
		return TrendReport{}, fmt.Errorf("no runs available")
	}

	cumulative := 0
	points := make([]TrendPoint, 0, len(runs))
	for i, current := range runs {
		cumulative += current.Annotated
		point := TrendPoint{
			Timestamp:           current.Timestamp,
			CommitHash:          current.CommitHash,
			Annotated:           current.Annotated,
			Skipped:             current.Skipped,
			FilesChanged:        current.FilesChanged,
			CumulativeAnnotated: cumulative,
		}

		if i > 0 {
			point.DeltaAnnotated = current.Annotated - runs[i-1].Annotated
		}

		point.AvgAnnotated = round2(movingAverage(runs, i, window))
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		Since:         runs[0].Timestamp,
		Until:         runs[len(runs)-1].Timestamp,
		Window:        window.String(),
		RunCount:      len(points),
		Points:        points,
	}, nil
}

func movingAverage(runs []Run, index int, window time.Duration) float64 {
	if window <= 0 {
		return float64(runs[index].Annotated)
	}

	cutoff := runs[index].Timestamp.Add(-window)
	total := 0
	count := 0
	for i := index; i >= 0; i-- {
		if runs[i].Timestamp.Before(cutoff) {
			break
		}
		total += runs[i].Annotated
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
