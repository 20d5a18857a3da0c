package publisher

import (
	"fmt"
	"strconv"
	"strings"

	"bot-cupons/internal/models"
)

const (
	currency      = "دولار"
	labelOriginal = "السعر الأصلي"
	labelCoupon   = "الكوبون المستخدم"
	labelDiscount = "خصم"
	labelFinal    = "السعر بعد الخصم"
	labelLink     = "رابط المنتج"
	textNoCoupon  = "لا يوجد كوبون مناسب لهذا السعر حالياً"
)

// FormatMessage monta o texto do post. coupon == nil gera a linha de
// "sem cupom" e o preço final igual ao original.
func FormatMessage(prefix, title string, price float64, coupon *models.CouponMatch, link string) string {
	couponLine := textNoCoupon
	finalPrice := price
	if coupon != nil {
		couponLine = fmt.Sprintf("%s: %s (%s %s %s)",
			labelCoupon, EscapeHTML(coupon.Coupon.Code), labelDiscount, FormatAmount(coupon.Coupon.Discount), currency)
		finalPrice = coupon.FinalPrice
	}

	lines := []string{
		fmt.Sprintf("%s: %s", EscapeHTML(prefix), EscapeHTML(title)),
		fmt.Sprintf("%s: %s", labelOriginal, FormatPrice(price)),
		couponLine,
		fmt.Sprintf("%s: %s", labelFinal, FormatPrice(finalPrice)),
		"",
		fmt.Sprintf("%s: %s", labelLink, EscapeHTML(link)),
	}
	return strings.Join(lines, "\n")
}

// FormatPrice formata com duas casas decimais e a moeda
func FormatPrice(v float64) string {
	return fmt.Sprintf("%.2f %s", v, currency)
}

// FormatAmount formata sem zeros à direita (5 → "5", 2.5 → "2.5")
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EscapeHTML escapa caracteres especiais do HTML aceito pelo Telegram
func EscapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
