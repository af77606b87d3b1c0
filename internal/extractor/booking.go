// Package extractor turns rendered hotel-page HTML into structured
// entities. Parsing is offline and deterministic: the same markup always
// yields the same entity, which keeps persisted results reproducible.
package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/hqnguyen/hotelharvest/internal/harvest"
)

// notFound marks a field the markup did not carry. The validator treats a
// not-found name as an invalid entity.
const notFound = "Not found"

// Label-to-key mapping for the evaluation subscore blocks. Booking renders
// the labels localized; the keys are stable.
var categoryLabels = map[string]string{
	"nhân viên phục vụ": "service_staff",
	"nhân viên":         "service_staff",
	"tiện nghi":         "amenities",
	"sạch sẽ":           "cleanliness",
	"thoải mái":         "comfort",
	"đáng giá tiền":     "value_for_money",
	"giá trị tiền bạc":  "value_for_money",
	"địa điểm":          "location",
	"vị trí":            "location",
	"staff":             "service_staff",
	"facilities":        "amenities",
	"cleanliness":       "cleanliness",
	"comfort":           "comfort",
	"value for money":   "value_for_money",
	"location":          "location",
}

var numberRe = regexp.MustCompile(`[\d.,]+`)

// Booking extracts hotel entities from booking.com property pages.
type Booking struct {
	logger *zap.Logger
}

// NewBooking constructs a Booking extractor.
func NewBooking(logger *zap.Logger) *Booking {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Booking{logger: logger}
}

// Extract parses html into an entity. Missing fields degrade to their
// zero or not-found values; only unparseable markup is an error.
func (b *Booking) Extract(html string) (*harvest.Entity, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page markup: %w", err)
	}

	entity := &harvest.Entity{
		Name:                 b.name(doc),
		Address:              b.address(doc),
		Description:          b.description(doc),
		EvaluationCategories: b.categories(doc),
		Reviews:              b.reviews(doc),
	}
	entity.Rating, entity.TotalRating = b.ratingBlock(doc)
	return entity, nil
}

// name walks the selector chain newest-markup-first. The capla component
// boundary is the current layout; the hp_hotel_name ids are legacy pages
// still served for some properties.
func (b *Booking) name(doc *goquery.Document) string {
	sel := doc.Find(`div[data-capla-component-boundary="b-property-web-property-page/PropertyHeaderName"] h2.pp-header__title`)
	if text := cleanText(sel.First().Text()); text != "" {
		return text
	}
	if text := cleanText(doc.Find("#hp_hotel_name h2").First().Text()); text != "" {
		return text
	}
	if text := cleanText(doc.Find("a#hp_hotel_name_reviews").First().Text()); text != "" {
		return text
	}
	b.logger.Debug("hotel name not present in markup")
	return notFound
}

func (b *Booking) address(doc *goquery.Document) string {
	if text := cleanText(doc.Find(`[data-testid="address"]`).First().Text()); text != "" {
		return text
	}
	if text := cleanText(doc.Find("div.b99b6ef58f.cb4b7a25d9.b06461926f").First().Text()); text != "" {
		return text
	}
	return notFound
}

func (b *Booking) description(doc *goquery.Document) string {
	if text := cleanText(doc.Find(`p[data-testid="property-description"]`).First().Text()); text != "" {
		return text
	}
	return notFound
}

// ratingBlock reads the aggregate score and the declared review count from
// the review-score component. The count keeps its raw localized form, e.g.
// "1.204 đánh giá"; downstream parsing strips the decoration.
func (b *Booking) ratingBlock(doc *goquery.Document) (rating, total string) {
	rating, total = notFound, notFound
	block := doc.Find(`[data-testid="review-score-component"]`).First()
	if block.Length() == 0 {
		return rating, total
	}
	if m := numberRe.FindString(block.Find("div.dff2e52086").First().Text()); m != "" {
		rating = strings.ReplaceAll(m, ",", ".")
	}
	if text := cleanText(block.Find("span.eaa8455879").First().Text()); text != "" {
		total = text
	}
	return rating, total
}

// categories reads the six evaluation subscores. Categories absent from
// the markup stay nil so the validator can tell "not rendered" apart
// from a zero score.
func (b *Booking) categories(doc *goquery.Document) map[string]*float64 {
	scores := map[string]*float64{
		"service_staff":   nil,
		"amenities":       nil,
		"cleanliness":     nil,
		"comfort":         nil,
		"value_for_money": nil,
		"location":        nil,
	}
	doc.Find(`div[data-testid="review-subscore"]`).Each(func(_ int, block *goquery.Selection) {
		label := normalizeLabel(block.Find("span.d96a4619c0").First().Text())
		if label == "" {
			return
		}
		key, ok := categoryLabels[label]
		if !ok {
			for known, mapped := range categoryLabels {
				if strings.Contains(label, known) {
					key, ok = mapped, true
					break
				}
			}
		}
		if !ok {
			b.logger.Debug("unmapped evaluation category", zap.String("label", label))
			return
		}
		if value, err := parseScore(block.Find("div.f87e152973").First().Text()); err == nil {
			scores[key] = &value
		}
	})
	return scores
}

func (b *Booking) reviews(doc *goquery.Document) []harvest.Review {
	var reviews []harvest.Review
	doc.Find(`div[data-testid="review-card"]`).Each(func(_ int, card *goquery.Selection) {
		review := harvest.Review{
			Reviewer:     cleanText(card.Find("div.b08850ce41.f546354b44").First().Text()),
			Country:      cleanText(card.Find("span.d838fb5f41.aea5eccb71").First().Text()),
			Room:         cleanText(card.Find(`span[data-testid="review-room-name"]`).First().Text()),
			Nights:       cleanText(card.Find(`span[data-testid="review-num-nights"]`).First().Text()),
			StayDate:     cleanText(card.Find(`span[data-testid="review-stay-date"]`).First().Text()),
			TravelerType: cleanText(card.Find(`span[data-testid="review-traveler-type"]`).First().Text()),
			Date:         cleanText(card.Find(`span[data-testid="review-date"]`).First().Text()),
			Title:        cleanText(card.Find(`h4[data-testid="review-title"]`).First().Text()),
			Positive:     cleanText(card.Find(`div[data-testid="review-positive-text"]`).First().Text()),
			Negative:     cleanText(card.Find(`div[data-testid="review-negative-text"]`).First().Text()),
		}
		review.Score = reviewScore(card)
		if review.Reviewer == "" && review.Title == "" && review.Score == "" {
			return
		}
		reviews = append(reviews, review)
	})
	return reviews
}

// reviewScore prefers the aria-hidden copy of the score, which Booking
// renders without the screen-reader prefix text.
func reviewScore(card *goquery.Selection) string {
	elem := card.Find(`div[data-testid="review-score"]`).First()
	if elem.Length() == 0 {
		return ""
	}
	text := elem.Find(`div[aria-hidden="true"]`).First().Text()
	if text == "" {
		text = elem.Text()
	}
	if m := numberRe.FindString(text); m != "" {
		return strings.ReplaceAll(m, ",", ".")
	}
	return ""
}

func parseScore(raw string) (float64, error) {
	m := numberRe.FindString(raw)
	if m == "" {
		return 0, fmt.Errorf("no numeric score in %q", raw)
	}
	return strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
}

func normalizeLabel(raw string) string {
	return strings.ToLower(cleanText(raw))
}

func cleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
