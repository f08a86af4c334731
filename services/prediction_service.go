package services

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/NanoLinuxDevops/WinSphere/models"
	"github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
)

// PredictionStrategy names a number-generation approach
type PredictionStrategy string

const (
	StrategyFrequency PredictionStrategy = "frequency"
	StrategyLSTM      PredictionStrategy = "lstm"
	StrategyARIMA     PredictionStrategy = "arima"
)

// Prediction is one generated candidate draw with its confidence estimate
type Prediction struct {
	Numbers    []int              `json:"numbers"`
	Bonus      int                `json:"bonus"`
	Strategy   PredictionStrategy `json:"strategy"`
	Confidence float64            `json:"confidence"`
}

// PredictionService generates candidate draws from historical frequency
// statistics. Lottery draws are independent events; the output is
// entertainment, and the confidence values say as much.
type PredictionService struct {
	rng    *rand.Rand
	logger *logrus.Entry
}

func NewPredictionService() *PredictionService {
	return &PredictionService{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logrus.WithField("component", "PredictionService"),
	}
}

// Predict generates one candidate draw using the requested strategy over
// the supplied history. An unknown strategy falls back to frequency.
func (s *PredictionService) Predict(history []models.DrawRecord, strategy PredictionStrategy) (Prediction, error) {
	if len(history) < 10 {
		return Prediction{}, fmt.Errorf("insufficient history: %d draws (minimum 10)", len(history))
	}

	weights, bonusWeights := s.frequencyWeights(history)

	switch strategy {
	case StrategyLSTM:
		// Recency-weighted variant: recent draws count more, loosely
		// imitating what a sequence model keys on
		weights, bonusWeights = s.recencyWeights(history)
	case StrategyARIMA:
		weights = s.smoothWeights(weights)
	default:
		strategy = StrategyFrequency
	}

	numbers := s.sampleDistinct(weights, models.MainNumberCount, models.MainNumberMin)
	sort.Ints(numbers)
	bonus := s.sampleDistinct(bonusWeights, 1, models.BonusNumberMin)[0]

	confidence := s.estimateConfidence(len(history))

	s.logger.WithFields(logrus.Fields{
		"strategy":     strategy,
		"history_size": len(history),
		"confidence":   confidence,
	}).Debug("Generated prediction")

	return Prediction{
		Numbers:    numbers,
		Bonus:      bonus,
		Strategy:   strategy,
		Confidence: confidence,
	}, nil
}

func (s *PredictionService) frequencyWeights(history []models.DrawRecord) ([]float64, []float64) {
	weights := make([]float64, models.MainNumberMax-models.MainNumberMin+1)
	bonusWeights := make([]float64, models.BonusNumberMax-models.BonusNumberMin+1)
	for _, record := range history {
		for _, n := range record.Numbers {
			weights[n-models.MainNumberMin]++
		}
		if record.Bonus >= models.BonusNumberMin && record.Bonus <= models.BonusNumberMax {
			bonusWeights[record.Bonus-models.BonusNumberMin]++
		}
	}
	// Laplace smoothing keeps never-seen numbers drawable
	for i := range weights {
		weights[i]++
	}
	for i := range bonusWeights {
		bonusWeights[i]++
	}
	return weights, bonusWeights
}

func (s *PredictionService) recencyWeights(history []models.DrawRecord) ([]float64, []float64) {
	sorted := append([]models.DrawRecord(nil), history...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DrawID < sorted[j].DrawID })

	weights := make([]float64, models.MainNumberMax-models.MainNumberMin+1)
	bonusWeights := make([]float64, models.BonusNumberMax-models.BonusNumberMin+1)
	for index, record := range sorted {
		weight := 1.0 + float64(index)/float64(len(sorted))
		for _, n := range record.Numbers {
			weights[n-models.MainNumberMin] += weight
		}
		if record.Bonus >= models.BonusNumberMin && record.Bonus <= models.BonusNumberMax {
			bonusWeights[record.Bonus-models.BonusNumberMin] += weight
		}
	}
	for i := range weights {
		weights[i]++
	}
	for i := range bonusWeights {
		bonusWeights[i]++
	}
	return weights, bonusWeights
}

// smoothWeights pulls every weight toward the mean, damping frequency
// outliers before sampling.
func (s *PredictionService) smoothWeights(weights []float64) []float64 {
	mean, err := stats.Mean(weights)
	if err != nil {
		return weights
	}
	smoothed := make([]float64, len(weights))
	for i, w := range weights {
		smoothed[i] = (w + mean) / 2
	}
	return smoothed
}

func (s *PredictionService) sampleDistinct(weights []float64, count, offset int) []int {
	remaining := append([]float64(nil), weights...)
	picked := make([]int, 0, count)

	for len(picked) < count {
		total := 0.0
		for _, w := range remaining {
			total += w
		}
		if total <= 0 {
			break
		}
		target := s.rng.Float64() * total
		for i, w := range remaining {
			target -= w
			if target <= 0 {
				picked = append(picked, i+offset)
				remaining[i] = 0
				break
			}
		}
	}
	return picked
}

func (s *PredictionService) estimateConfidence(historySize int) float64 {
	// Grows slowly with history and is capped well below certainty;
	// there is no real predictive power here
	confidence := 0.05 + float64(historySize)/10000.0
	if confidence > 0.15 {
		confidence = 0.15
	}
	return confidence
}

// SyntheticDataGenerator fabricates statistically plausible draw records.
// It backs the explicit synthetic-fallback mode and test fixtures; its
// output is always labeled synthetic downstream.
type SyntheticDataGenerator struct {
	rng *rand.Rand
}

func NewSyntheticDataGenerator() *SyntheticDataGenerator {
	return &SyntheticDataGenerator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Generate produces count records with descending draw ids ending at
// latestDrawID and twice-weekly dates walking back from today.
func (g *SyntheticDataGenerator) Generate(count, latestDrawID int) []models.DrawRecord {
	if count <= 0 {
		return nil
	}
	if latestDrawID <= 0 {
		latestDrawID = 4000
	}

	records := make([]models.DrawRecord, 0, count)
	date := time.Now()
	for i := 0; i < count; i++ {
		records = append(records, models.DrawRecord{
			DrawID:  latestDrawID - i,
			Date:    date.Format("2006-01-02"),
			Numbers: g.randomNumbers(),
			Bonus:   g.rng.Intn(models.BonusNumberMax-models.BonusNumberMin+1) + models.BonusNumberMin,
		})
		date = date.AddDate(0, 0, -3)
	}
	return records
}

func (g *SyntheticDataGenerator) randomNumbers() []int {
	seen := make(map[int]bool, models.MainNumberCount)
	numbers := make([]int, 0, models.MainNumberCount)
	for len(numbers) < models.MainNumberCount {
		n := g.rng.Intn(models.MainNumberMax-models.MainNumberMin+1) + models.MainNumberMin
		if seen[n] {
			continue
		}
		seen[n] = true
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}
