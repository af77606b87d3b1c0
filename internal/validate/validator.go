// Package validate judges persisted entities against the schema and
// business rules the downstream pipeline depends on. Validation is a pure
// function over entity content: it never fetches, never retries, and always
// returns a verdict rather than an error.
package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
)

// requiredCategories are the six sub-category scores every valid entity
// must carry.
var requiredCategories = []string{
	"service_staff",
	"amenities",
	"cleanliness",
	"comfort",
	"value_for_money",
	"location",
}

// Config tunes the declared-total rule.
type Config struct {
	// TotalTolerancePct is the allowed relative deviation, in percent,
	// between the declared review total and the number of persisted
	// reviews. Zero disables the deviation check.
	TotalTolerancePct float64
}

// Validate applies the rules in order and returns the first failure as the
// verdict reason. All rules must pass for a valid verdict. Re-running over
// the same content always yields the same verdict.
func Validate(slug string, entity *harvest.Entity, cfg Config) harvest.Verdict {
	if entity == nil {
		return invalid(slug, "entity is missing or unreadable")
	}
	if reason := checkName(entity); reason != "" {
		return invalid(slug, reason)
	}
	if reason := checkCategories(entity); reason != "" {
		return invalid(slug, reason)
	}
	if reason := checkReviews(entity); reason != "" {
		return invalid(slug, reason)
	}
	if reason := checkDeclaredTotal(entity, cfg); reason != "" {
		return invalid(slug, reason)
	}
	return harvest.Verdict{Slug: slug, Valid: true}
}

func invalid(slug, reason string) harvest.Verdict {
	return harvest.Verdict{Slug: slug, Valid: false, Reason: reason}
}

func checkName(entity *harvest.Entity) string {
	name := strings.TrimSpace(entity.Name)
	if name == "" || strings.EqualFold(name, "not found") {
		return "name is null or empty"
	}
	return ""
}

func checkCategories(entity *harvest.Entity) string {
	if entity.EvaluationCategories == nil {
		return "evaluation_categories missing"
	}
	allNull := true
	anyNull := false
	for _, field := range requiredCategories {
		value, ok := entity.EvaluationCategories[field]
		if !ok || value == nil {
			anyNull = true
		} else {
			allNull = false
		}
	}
	if allNull {
		return "all 6 evaluation scores are null"
	}
	if anyNull {
		return "at least one evaluation score is null"
	}
	return ""
}

func checkReviews(entity *harvest.Entity) string {
	if len(entity.Reviews) == 0 {
		return "reviews are null or empty"
	}
	return ""
}

func checkDeclaredTotal(entity *harvest.Entity, cfg Config) string {
	declared := strings.TrimSpace(entity.TotalRating)
	if declared == "" || strings.EqualFold(declared, "not found") {
		return "" // optional field
	}
	total, ok := parseDeclaredTotal(declared)
	if !ok {
		return fmt.Sprintf("declared total %q is not parseable", declared)
	}
	if cfg.TotalTolerancePct <= 0 {
		return ""
	}
	actual := len(entity.Reviews)
	deviation := math.Abs(float64(total-actual)) / float64(total) * 100
	if deviation > cfg.TotalTolerancePct {
		return fmt.Sprintf("declared total %d deviates from %d reviews by %.0f%% (tolerance %.0f%%)",
			total, actual, deviation, cfg.TotalTolerancePct)
	}
	return ""
}

// parseDeclaredTotal extracts the leading number from strings like
// "1.234 đánh giá", tolerating dot and comma thousand separators.
func parseDeclaredTotal(s string) (int, bool) {
	var digits strings.Builder
	started := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
			started = true
		case (r == '.' || r == ',') && started:
			// thousand separator inside the number
		default:
			if started {
				goto done
			}
		}
	}
done:
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
