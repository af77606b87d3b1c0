package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const propertyPage = `<!DOCTYPE html>
<html><body>
<div data-capla-component-boundary="b-property-web-property-page/PropertyHeaderName">
  <h2 class="pp-header__title">Mường Thanh Grand Hà Nội</h2>
</div>
<div data-testid="address">78 Thợ Nhuộm, Hoàn Kiếm, Hà Nội</div>
<p data-testid="property-description">Khách sạn trung tâm.
Gần hồ Hoàn Kiếm.</p>
<div data-testid="review-score-component">
  <div class="dff2e52086">8,4 Rất tốt</div>
  <span class="eaa8455879">1.204 đánh giá</span>
</div>
<div data-testid="review-subscore"><span class="d96a4619c0">Nhân viên phục vụ</span><div class="f87e152973">8,9</div></div>
<div data-testid="review-subscore"><span class="d96a4619c0">Tiện nghi</span><div class="f87e152973">8,1</div></div>
<div data-testid="review-subscore"><span class="d96a4619c0">Sạch sẽ</span><div class="f87e152973">8,5</div></div>
<div data-testid="review-subscore"><span class="d96a4619c0">Thoải mái</span><div class="f87e152973">8,3</div></div>
<div data-testid="review-subscore"><span class="d96a4619c0">Đáng giá tiền</span><div class="f87e152973">7,9</div></div>
<div data-testid="review-subscore"><span class="d96a4619c0">Địa điểm</span><div class="f87e152973">9,2</div></div>
<div data-testid="review-card">
  <div class="b08850ce41 f546354b44">Lan</div>
  <span class="d838fb5f41 aea5eccb71">Việt Nam</span>
  <span data-testid="review-room-name">Phòng Deluxe</span>
  <span data-testid="review-num-nights">2 đêm</span>
  <span data-testid="review-stay-date">tháng 7 2025</span>
  <span data-testid="review-traveler-type">Cặp đôi</span>
  <span data-testid="review-date">Đánh giá ngày 12 tháng 8 2025</span>
  <h4 data-testid="review-title">Tuyệt vời</h4>
  <div data-testid="review-score"><div aria-hidden="true">9,0</div><div>Điểm 9,0</div></div>
  <div data-testid="review-positive-text">Sạch, nhân viên thân thiện</div>
  <div data-testid="review-negative-text">Bữa sáng ít món</div>
</div>
</body></html>`

const legacyPage = `<html><body>
<div id="hp_hotel_name"><h2> Sea Breeze Resort </h2></div>
</body></html>`

func TestExtractFullPropertyPage(t *testing.T) {
	t.Parallel()

	entity, err := NewBooking(zap.NewNop()).Extract(propertyPage)
	require.NoError(t, err)

	require.Equal(t, "Mường Thanh Grand Hà Nội", entity.Name)
	require.Equal(t, "78 Thợ Nhuộm, Hoàn Kiếm, Hà Nội", entity.Address)
	require.Contains(t, entity.Description, "Khách sạn trung tâm")
	require.Equal(t, "8.4", entity.Rating)
	require.Equal(t, "1.204 đánh giá", entity.TotalRating)

	want := map[string]float64{
		"service_staff":   8.9,
		"amenities":       8.1,
		"cleanliness":     8.5,
		"comfort":         8.3,
		"value_for_money": 7.9,
		"location":        9.2,
	}
	for key, score := range want {
		require.NotNil(t, entity.EvaluationCategories[key], key)
		require.InDelta(t, score, *entity.EvaluationCategories[key], 0.001, key)
	}

	require.Len(t, entity.Reviews, 1)
	review := entity.Reviews[0]
	require.Equal(t, "Lan", review.Reviewer)
	require.Equal(t, "Việt Nam", review.Country)
	require.Equal(t, "Phòng Deluxe", review.Room)
	require.Equal(t, "9.0", review.Score)
	require.Equal(t, "Bữa sáng ít món", review.Negative)
}

func TestExtractLegacyNameFallback(t *testing.T) {
	t.Parallel()

	entity, err := NewBooking(zap.NewNop()).Extract(legacyPage)
	require.NoError(t, err)
	require.Equal(t, "Sea Breeze Resort", entity.Name)
}

func TestExtractEmptyPage(t *testing.T) {
	t.Parallel()

	entity, err := NewBooking(zap.NewNop()).Extract("<html><body></body></html>")
	require.NoError(t, err)

	require.Equal(t, "Not found", entity.Name)
	require.Equal(t, "Not found", entity.Rating)
	require.Empty(t, entity.Reviews)
	require.Len(t, entity.EvaluationCategories, 6)
	for key, score := range entity.EvaluationCategories {
		require.Nil(t, score, key)
	}
}

func TestExtractUnmappedCategoryIgnored(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<div data-testid="review-subscore"><span class="d96a4619c0">WiFi miễn phí cực nhanh</span><div class="f87e152973">9,6</div></div>
<div data-testid="review-subscore"><span class="d96a4619c0">Vị trí</span><div class="f87e152973">8,8</div></div>
</body></html>`

	entity, err := NewBooking(zap.NewNop()).Extract(page)
	require.NoError(t, err)
	require.NotNil(t, entity.EvaluationCategories["location"])
	require.InDelta(t, 8.8, *entity.EvaluationCategories["location"], 0.001)
	require.Nil(t, entity.EvaluationCategories["amenities"])
}
