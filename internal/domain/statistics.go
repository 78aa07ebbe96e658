package domain

import "math"

// ComputeStatistics reduces a record set to its aggregate figures. It is the
// only way statistics are produced; an empty set yields all zeros.
func ComputeStatistics(records []ResultRecord) Statistics {
	if len(records) == 0 {
		return Statistics{}
	}
	sum := 0
	highest := records[0].Score
	lowest := records[0].Score
	for _, r := range records {
		sum += r.Score
		if r.Score > highest {
			highest = r.Score
		}
		if r.Score < lowest {
			lowest = r.Score
		}
	}
	mean := float64(sum) / float64(len(records))
	return Statistics{
		TotalAttempts: len(records),
		AverageScore:  math.Round(mean*10) / 10,
		HighestScore:  highest,
		LowestScore:   lowest,
	}
}

// Percentage returns score/total as a rounded percentage.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// Grade returns the headline and message for a finished attempt.
func Grade(percentage int) (string, string) {
	switch {
	case percentage >= 80:
		return "Excellent!", "Outstanding performance! You're a Java expert!"
	case percentage >= 60:
		return "Good Job!", "Great effort! Keep practicing to master Java."
	case percentage >= 40:
		return "Keep Trying!", "You're making progress. Review and try again!"
	default:
		return "Study More!", "Review Java basics and try again. You got this!"
	}
}
