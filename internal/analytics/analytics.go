package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/franckalain/caloriesense/internal/models"
)

// NoData is the highest_calorie_day reported for an empty history.
const NoData = "N/A"

// MaxMealCalories is the largest calorie count accepted for a single meal.
const MaxMealCalories = math.MaxInt32

// ErrAggregation is returned when a meal's calories are not a number in
// [0, MaxMealCalories].
var ErrAggregation = errors.New("failed to aggregate meals")

// DayTotal is the calorie sum of all meals logged on one date
type DayTotal struct {
	Date  string
	Total float64
}

// Process summarises a meal history. It is a pure function of meals.
func Process(meals []models.MealEntry) (*models.AnalyticsResult, error) {
	if len(meals) == 0 {
		return &models.AnalyticsResult{AverageCalories: 0, HighestCalorieDay: NoData}, nil
	}

	var sum float64
	for i, meal := range meals {
		v, err := mealCalories(i, meal)
		if err != nil {
			return nil, err
		}
		sum += v
	}

	days, err := DailyTotals(meals)
	if err != nil {
		return nil, err
	}

	var daySum float64
	best := days[0]
	for _, day := range days {
		daySum += day.Total
		if day.Total > best.Total {
			best = day
		}
	}

	dailyAverage := int(daySum / float64(len(days)))
	highest := int(best.Total)

	return &models.AnalyticsResult{
		AverageCalories:   int(sum / float64(len(meals))),
		DailyAverage:      &dailyAverage,
		HighestCalorieDay: best.Date,
		HighestCalories:   &highest,
	}, nil
}

// DailyTotals groups meals by date and sums their calories. Dates are
// returned in ascending order.
func DailyTotals(meals []models.MealEntry) ([]DayTotal, error) {
	totals := make(map[string]float64)
	for i, meal := range meals {
		v, err := mealCalories(i, meal)
		if err != nil {
			return nil, err
		}
		totals[meal.Date] += v
	}

	days := make([]DayTotal, 0, len(totals))
	for date, total := range totals {
		days = append(days, DayTotal{Date: date, Total: total})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}

func mealCalories(i int, meal models.MealEntry) (float64, error) {
	v, err := meal.Calories.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: meal %d: %v", ErrAggregation, i, err)
	}
	if v < 0 || v > MaxMealCalories {
		return 0, fmt.Errorf("%w: meal %d: calories %q out of range", ErrAggregation, i, string(meal.Calories))
	}
	return v, nil
}
